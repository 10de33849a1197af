package model

// ChangedFile is a single file in a pull request diff. Files without a
// textual patch (binary, too large) are filtered out at fetch time.
type ChangedFile struct {
	Filename string
	Patch    string
}

// ReviewRun holds the per-run pipeline state. Created when a run is
// scheduled, mutated stage by stage, discarded after publish.
type ReviewRun struct {
	RunID     string // correlation ID for logs
	RepoOwner string
	RepoName  string
	Number    int
	Files     []ChangedFile
	Analysis  string // raw analysis text, set by the analyze stage
}

// RunCredentials carries the credentials for a single pipeline run.
// Both values are resolved when the run starts and passed explicitly
// through the call chain; they must never be stored in shared state.
type RunCredentials struct {
	InstallationToken string // scoped GitHub access for fetch/publish
	AnalysisAPIKey    string // user's decrypted analysis service key
}

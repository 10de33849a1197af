package model

import "path/filepath"

// ReviewPolicy tunes what a review run sends to the analysis service.
// Loaded from an optional TOML file; the zero value applies no limits.
type ReviewPolicy struct {
	// SystemPrompt overrides the built-in system prompt when non-empty.
	SystemPrompt string `toml:"system_prompt"`

	// Exclude lists filepath.Match globs for files to drop from the
	// diff document (e.g. "*.lock", "vendor/*").
	Exclude []string `toml:"exclude"`

	// MaxDocumentBytes caps the concatenated diff document. Zero means
	// no cap. The document is cut at a file boundary, never mid-patch.
	MaxDocumentBytes int `toml:"max_document_bytes"`
}

// Excluded reports whether a changed file matches an exclusion glob.
// Globs match against both the full path and the base name, so
// "*.lock" catches "deps/Cargo.lock".
func (p *ReviewPolicy) Excluded(filename string) bool {
	for _, pattern := range p.Exclude {
		if ok, err := filepath.Match(pattern, filename); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(pattern, filepath.Base(filename)); err == nil && ok {
			return true
		}
	}
	return false
}

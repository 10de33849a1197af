package usecase

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/smartreview-app/smartreview/pkg/domain/interfaces"
	"github.com/smartreview-app/smartreview/pkg/domain/model"
)

//go:embed prompts/review_system.md
var defaultSystemPrompt string

// analyzeAttempts bounds the retry loop around the analysis call.
const analyzeAttempts = 3

// ReviewPipeline runs the four review stages for one pull request:
// fetch the diff, analyze it, format the result, publish it as a
// comment. Each stage's outcome is logged distinctly; there is no
// rollback, so a publish failure after a successful analysis loses
// that analysis (known limitation, surfaced in the logs).
//
// The pipeline holds no credentials. Everything run-scoped arrives as
// parameters.
type ReviewPipeline struct {
	codeHost   interfaces.CodeHost
	llmFactory interfaces.LLMFactory
	policy     model.ReviewPolicy
}

// NewReviewPipeline creates a review pipeline.
func NewReviewPipeline(codeHost interfaces.CodeHost, llmFactory interfaces.LLMFactory, policy model.ReviewPolicy) *ReviewPipeline {
	return &ReviewPipeline{
		codeHost:   codeHost,
		llmFactory: llmFactory,
		policy:     policy,
	}
}

// Run executes the pipeline for one pull request.
func (p *ReviewPipeline) Run(ctx context.Context, run *model.ReviewRun, creds model.RunCredentials) error {
	logger := ctxlog.From(ctx).With(
		"run_id", run.RunID,
		"repo", run.RepoOwner+"/"+run.RepoName,
		"number", run.Number,
	)
	ctx = ctxlog.With(ctx, logger)

	if err := p.fetch(ctx, run, creds); err != nil {
		return goerr.Wrap(err, "fetch stage failed", goerr.V("run_id", run.RunID))
	}
	logger.Info("stage complete", "stage", "fetch", "files", len(run.Files))

	if len(run.Files) == 0 {
		logger.Info("no reviewable changes, ending run without comment")
		return nil
	}

	if err := p.analyze(ctx, run, creds); err != nil {
		return goerr.Wrap(err, "analyze stage failed", goerr.V("run_id", run.RunID))
	}
	logger.Info("stage complete", "stage", "analyze", "analysis_chars", len(run.Analysis))

	comment := formatReview(run.Analysis)
	logger.Info("stage complete", "stage", "format")

	if err := p.publish(ctx, run, creds, comment); err != nil {
		logger.Error("publish failed after successful analysis, review text is lost")
		return goerr.Wrap(err, "publish stage failed", goerr.V("run_id", run.RunID))
	}
	logger.Info("stage complete", "stage", "publish")

	return nil
}

// fetch retrieves the changed files, applying the policy's exclusion
// globs.
func (p *ReviewPipeline) fetch(ctx context.Context, run *model.ReviewRun, creds model.RunCredentials) error {
	files, err := p.codeHost.ListChangedFiles(ctx, creds.InstallationToken, run.RepoOwner, run.RepoName, run.Number)
	if err != nil {
		return err
	}

	kept := files[:0]
	for _, f := range files {
		if p.policy.Excluded(f.Filename) {
			ctxlog.From(ctx).Debug("file excluded by policy", "filename", f.Filename)
			continue
		}
		kept = append(kept, f)
	}
	run.Files = kept

	return nil
}

// analyze submits the concatenated diff document to the analysis
// service as a single opaque call, retrying transient failures with
// backoff.
func (p *ReviewPipeline) analyze(ctx context.Context, run *model.ReviewRun, creds model.RunCredentials) error {
	doc := buildDocument(ctx, run.Files, p.policy.MaxDocumentBytes)

	client, err := p.llmFactory.NewClient(ctx, creds.AnalysisAPIKey)
	if err != nil {
		return err
	}

	systemPrompt := p.policy.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	var resp *gollem.Response
	backoff := time.Second
	for attempt := 1; ; attempt++ {
		resp, err = p.generate(ctx, client, systemPrompt, doc)
		if err == nil {
			break
		}
		if attempt >= analyzeAttempts || ctx.Err() != nil {
			return err
		}

		ctxlog.From(ctx).Warn("analysis call failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}

	if len(resp.Texts) == 0 {
		return goerr.New("empty response from analysis service")
	}
	run.Analysis = strings.Join(resp.Texts, "\n")

	return nil
}

func (p *ReviewPipeline) generate(ctx context.Context, client gollem.LLMClient, systemPrompt, doc string) (*gollem.Response, error) {
	session, err := client.NewSession(ctx,
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create analysis session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(doc))
	if err != nil {
		return nil, goerr.Wrap(err, "analysis request failed")
	}

	return resp, nil
}

// publish posts the formatted review on the pull request.
func (p *ReviewPipeline) publish(ctx context.Context, run *model.ReviewRun, creds model.RunCredentials, comment string) error {
	return p.codeHost.CreateComment(ctx, creds.InstallationToken, run.RepoOwner, run.RepoName, run.Number, comment)
}

// buildDocument concatenates patches into one document, one block per
// file in diff order. maxBytes caps the document at a file boundary;
// zero means no cap.
func buildDocument(ctx context.Context, files []model.ChangedFile, maxBytes int) string {
	var sb strings.Builder
	for _, f := range files {
		block := fmt.Sprintf("File: %s\n%s", f.Filename, f.Patch)
		if maxBytes > 0 && sb.Len() > 0 && sb.Len()+len(block)+2 > maxBytes {
			ctxlog.From(ctx).Warn("diff document truncated by policy",
				"max_bytes", maxBytes,
				"dropped_from", f.Filename,
			)
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(block)
	}
	return sb.String()
}

// formatReview wraps the raw analysis text in the fixed comment
// template identifying it as automated output.
func formatReview(analysis string) string {
	var sb strings.Builder

	sb.WriteString("## 🤖 AI Code Review Analysis\n\n")
	sb.WriteString(analysis)
	sb.WriteString("\n\n---\n")
	sb.WriteString("*This review was generated automatically by the SmartReview agent. ")
	sb.WriteString("Please review the suggestions and address any critical issues before merging.*\n")

	return sb.String()
}

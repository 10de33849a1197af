package interfaces

import (
	"context"

	"github.com/smartreview-app/smartreview/pkg/domain/model"
)

// CodeHost defines the GitHub operations a review run needs. The
// installation token is a parameter on every call so that each run uses
// only its own credential; implementations hold no per-run state.
type CodeHost interface {
	// ListChangedFiles returns the changed files of a pull request in
	// API order, following pagination. Files without a textual patch
	// are omitted.
	ListChangedFiles(ctx context.Context, token, owner, repo string, number int) ([]model.ChangedFile, error)

	// CreateComment posts a comment on a pull request.
	CreateComment(ctx context.Context, token, owner, repo string, number int, body string) error
}

// TokenSource issues installation access tokens for the GitHub App.
type TokenSource interface {
	// Token returns a valid installation token, reusing a cached one
	// until close to expiry.
	Token(ctx context.Context, installationID int64) (string, error)
}

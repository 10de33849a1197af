package interfaces

import (
	"context"

	"github.com/m-mizutani/gollem"
)

// LLMFactory builds an analysis service client for a single pipeline
// run. A fresh client per run keeps the user's API key out of any
// shared state.
type LLMFactory interface {
	NewClient(ctx context.Context, apiKey string) (gollem.LLMClient, error)
}

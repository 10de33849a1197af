package llm

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/openai"
)

// OpenAIFactory creates OpenAI-compatible analysis clients. A new
// client is built per review run with that run's user API key.
type OpenAIFactory struct {
	model string
}

// NewOpenAIFactory creates a factory producing clients for the given
// model.
func NewOpenAIFactory(model string) *OpenAIFactory {
	return &OpenAIFactory{model: model}
}

// NewClient builds a client bound to the given API key.
func (f *OpenAIFactory) NewClient(ctx context.Context, apiKey string) (gollem.LLMClient, error) {
	client, err := openai.New(ctx, apiKey, openai.WithModel(f.model))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create analysis client")
	}
	return client, nil
}

package githubapp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/m-mizutani/goerr/v2"

	"github.com/smartreview-app/smartreview/pkg/domain/model"
	"github.com/smartreview-app/smartreview/pkg/domain/types"
)

// Client talks to the GitHub REST API on behalf of a review run. It
// holds no credentials: the installation token is a parameter on every
// call, so concurrent runs cannot observe each other's token.
//
// Transient failures (5xx, connection errors) are retried with backoff
// by the underlying HTTP client; 4xx responses are not.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIBaseURL points the client at a non-default GitHub API base
// URL (GitHub Enterprise, or a test server).
func WithAPIBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithClientHTTP replaces the HTTP client, disabling the default retry
// transport. Mainly for tests.
func WithClientHTTP(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a GitHub REST client with retrying transport.
func NewClient(opts ...ClientOption) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 8 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil

	c := &Client{
		httpClient: rc.StandardClient(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) rest(token string) (*github.Client, error) {
	gh := github.NewClient(c.httpClient).WithAuthToken(token)
	if c.baseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(c.baseURL, c.baseURL)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid GitHub API base URL")
		}
	}
	return gh, nil
}

// ListChangedFiles returns the pull request's changed files in API
// order, following pagination. Files without a textual patch (binary,
// oversized) are omitted.
func (c *Client) ListChangedFiles(ctx context.Context, token, owner, repo string, number int) ([]model.ChangedFile, error) {
	gh, err := c.rest(token)
	if err != nil {
		return nil, err
	}

	var files []model.ChangedFile
	opts := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			// Carry the API error (status code, rate-limit message) next
			// to the sentinel so callers can both classify and diagnose.
			return nil, goerr.Wrap(errors.Join(types.ErrUpstreamAPI, err), "failed to list changed files",
				goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("number", number))
		}

		for _, f := range page {
			if f.GetPatch() == "" {
				continue
			}
			files = append(files, model.ChangedFile{
				Filename: f.GetFilename(),
				Patch:    f.GetPatch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// CreateComment posts a comment on the pull request.
func (c *Client) CreateComment(ctx context.Context, token, owner, repo string, number int, body string) error {
	gh, err := c.rest(token)
	if err != nil {
		return err
	}

	_, _, err = gh.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return goerr.Wrap(errors.Join(types.ErrUpstreamAPI, err), "failed to create comment",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("number", number))
	}

	return nil
}

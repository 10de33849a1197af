package githubapp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/singleflight"

	"github.com/smartreview-app/smartreview/pkg/domain/types"
)

// assertionLifetime is the GitHub-imposed maximum for app JWTs.
const assertionLifetime = 10 * time.Minute

// assertionBackdate compensates for clock drift between this process
// and GitHub, which rejects assertions issued in the future.
const assertionBackdate = time.Minute

// Identity manages the GitHub App credential lifecycle: it signs
// short-lived app assertions with the App's private key and exchanges
// them for installation access tokens. Tokens are cached per
// installation and refreshed before expiry; concurrent refreshes for
// the same installation collapse into a single exchange call.
//
// Assertions are regenerated on every exchange and never persisted.
type Identity struct {
	appID      int64
	signingKey jwk.Key
	httpClient *http.Client
	baseURL    string
	margin     time.Duration

	mu    sync.RWMutex
	cache map[int64]cachedToken
	group singleflight.Group
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// IdentityOption configures an Identity.
type IdentityOption func(*Identity)

// WithBaseURL points the token exchange at a non-default GitHub API
// base URL (GitHub Enterprise, or a test server).
func WithBaseURL(baseURL string) IdentityOption {
	return func(i *Identity) {
		i.baseURL = baseURL
	}
}

// WithRefreshMargin sets how long before expiry a cached token is
// considered stale. Default is 5 minutes.
func WithRefreshMargin(margin time.Duration) IdentityOption {
	return func(i *Identity) {
		i.margin = margin
	}
}

// WithHTTPClient replaces the HTTP client used for the exchange call.
func WithHTTPClient(client *http.Client) IdentityOption {
	return func(i *Identity) {
		i.httpClient = client
	}
}

// NewIdentity parses the App's RSA private key and returns an Identity.
// A malformed or missing key fails here, at start-up, not per request.
func NewIdentity(appID int64, privateKeyPEM []byte, opts ...IdentityOption) (*Identity, error) {
	if appID <= 0 {
		return nil, goerr.New("GitHub App ID is required")
	}

	key, err := jwk.ParseKey(privateKeyPEM, jwk.WithPEM(true))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse GitHub App private key")
	}

	i := &Identity{
		appID:      appID,
		signingKey: key,
		httpClient: http.DefaultClient,
		margin:     5 * time.Minute,
		cache:      make(map[int64]cachedToken),
	}
	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

// Token returns a valid installation token, reusing the cached one
// until the refresh margin before its expiry.
func (i *Identity) Token(ctx context.Context, installationID int64) (string, error) {
	if tok, ok := i.cached(installationID); ok {
		return tok, nil
	}

	v, err, _ := i.group.Do(strconv.FormatInt(installationID, 10), func() (any, error) {
		// A caller that queued behind the winning flight may find the
		// cache already refreshed.
		if tok, ok := i.cached(installationID); ok {
			return tok, nil
		}
		return i.exchange(ctx, installationID)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (i *Identity) cached(installationID int64) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	tok, ok := i.cache[installationID]
	if !ok || time.Now().After(tok.expiresAt.Add(-i.margin)) {
		return "", false
	}
	return tok.value, true
}

func (i *Identity) exchange(ctx context.Context, installationID int64) (string, error) {
	assertion, err := i.signAssertion()
	if err != nil {
		return "", err
	}

	gh := github.NewClient(i.httpClient).WithAuthToken(assertion)
	if i.baseURL != "" {
		gh, err = gh.WithEnterpriseURLs(i.baseURL, i.baseURL)
		if err != nil {
			return "", goerr.Wrap(err, "invalid GitHub API base URL")
		}
	}

	tok, _, err := gh.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return "", goerr.Wrap(errors.Join(types.ErrTokenExchangeFailed, err), "exchange call failed",
			goerr.V("installation_id", installationID))
	}

	expiresAt := tok.GetExpiresAt().Time
	i.mu.Lock()
	i.cache[installationID] = cachedToken{
		value:     tok.GetToken(),
		expiresAt: expiresAt,
	}
	i.mu.Unlock()

	ctxlog.From(ctx).Debug("installation token refreshed",
		"installation_id", installationID,
		"expires_at", expiresAt,
	)

	return tok.GetToken(), nil
}

// signAssertion builds and signs a fresh app assertion. iat is
// backdated by a minute against clock drift; exp is the 10 minute
// maximum GitHub accepts.
func (i *Identity) signAssertion() (string, error) {
	now := time.Now()

	tok, err := jwt.NewBuilder().
		Issuer(strconv.FormatInt(i.appID, 10)).
		IssuedAt(now.Add(-assertionBackdate)).
		Expiration(now.Add(assertionLifetime)).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build app assertion")
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, i.signingKey))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign app assertion")
	}

	return string(signed), nil
}

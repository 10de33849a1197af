package types

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for the core failure taxonomy. Callers match with
// errors.Is; goerr.Wrap preserves the chain.
var (
	// ErrCredentialNotFound is returned by the vault when no secret is
	// stored for an owner, and also when a stored ciphertext cannot be
	// decrypted (callers must not be able to distinguish the two).
	ErrCredentialNotFound = goerr.New("credential not found")

	// ErrVaultUninitialized indicates the vault's backing store is
	// unavailable. Fatal for the calling operation, not for the process.
	ErrVaultUninitialized = goerr.New("credential vault is not initialized")

	// ErrTokenExchangeFailed indicates the installation token exchange
	// with GitHub did not succeed.
	ErrTokenExchangeFailed = goerr.New("installation token exchange failed")

	// ErrUpstreamAPI indicates a failed call to GitHub or the analysis
	// service during a pipeline run.
	ErrUpstreamAPI = goerr.New("upstream API call failed")

	// ErrInvalidPayload indicates a webhook payload missing required
	// fields. Surfaced as HTTP 400, never silently skipped.
	ErrInvalidPayload = goerr.New("invalid webhook payload")
)

// Package outbound defines the outbound port interfaces the client runtime
// depends on: durable credential storage, navigation, and the REST API.
package outbound

import (
	"context"
	"net/url"
)

// Durable storage keys shared by the Session Manager and the Gateway.
const (
	// KeyToken holds the raw credential string.
	KeyToken = "token"
	// KeyUser holds the JSON-serialized user profile.
	KeyUser = "user"
)

// CredentialStore is the durable key/value storage that survives restarts.
// It is the single authoritative source of the outgoing credential: the
// Gateway reads it on every request, the Session Manager writes it.
// Implementations: file, sqlite (prod), in-memory (test).
type CredentialStore interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Navigator performs view transitions on behalf of the runtime.
type Navigator interface {
	// CurrentPath returns the path of the view currently shown.
	CurrentPath() string

	// Navigate performs a hard navigation to path, discarding view state.
	Navigate(path string)
}

// API is the authenticated REST client used for every call except the
// credential exchange. Paths are relative to the configured base URL.
type API interface {
	// Get issues a GET request and decodes the JSON response into out.
	// out may be nil to discard the body.
	Get(ctx context.Context, path string, query url.Values, out any) error

	// GetRaw issues a GET request and returns the undecoded response body.
	GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error)

	// Post issues a POST request with body encoded as JSON (nil for an
	// empty body) and decodes the JSON response into out.
	Post(ctx context.Context, path string, body, out any) error
}

// CredentialExchanger trades a username and password for a token. It talks
// to the server directly, without the credential interceptors of API.
type CredentialExchanger interface {
	ExchangeCredentials(ctx context.Context, username, password string) (string, error)
}

// Package state provides durable persistence for the client session, the
// equivalent of browser local storage. Two backends are provided: a JSON
// state file with atomic writes and file locking, and a SQLite database.
// Both implement outbound.CredentialStore.
package state

import "time"

// AppState is the top-level structure persisted in the state file.
type AppState struct {
	// Version is the schema version for forward compatibility. Currently "1".
	Version string `json:"version"`

	// Values holds the stored keys (token, user).
	Values map[string]string `json:"values"`

	// CreatedAt is when this state file was first created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when this state file was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

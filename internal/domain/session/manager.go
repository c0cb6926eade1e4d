package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
)

// API paths used by the session.
const (
	ProfilePath        = "/api/users/me/"
	toggleFavoritePath = "/api/courses/%d/toggle-favorite/"
)

// Manager owns the credential and the user profile.
//
// Invariants:
//   - IsAuthenticated() is true exactly when a token is held.
//   - The profile is never held without a token.
//   - The token reaches durable storage before it reaches memory, because
//     the gateway reads it from storage.
//   - A profile is installed and persisted only while the token it was
//     fetched with is still held.
//
// SECURITY: the token and the password are never logged.
type Manager struct {
	// writeMu serializes session transitions that touch storage: login,
	// logout and profile persistence. mu guards the in-memory fields.
	writeMu        sync.Mutex
	mu             sync.RWMutex
	token          string
	profile        *UserProfile
	authenticating bool

	store     outbound.CredentialStore
	api       outbound.API
	exchanger outbound.CredentialExchanger
	logger    *slog.Logger
}

// NewManager creates a Manager and restores the session from store. The
// restored session is optimistic: it has not been checked with the server.
func NewManager(ctx context.Context, store outbound.CredentialStore, api outbound.API, exchanger outbound.CredentialExchanger, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:     store,
		api:       api,
		exchanger: exchanger,
		logger:    logger,
	}
	if err := m.restore(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) restore(ctx context.Context) error {
	token, hasToken, err := m.store.Get(ctx, outbound.KeyToken)
	if err != nil {
		return fmt.Errorf("restore token: %w", err)
	}
	raw, hasUser, err := m.store.Get(ctx, outbound.KeyUser)
	if err != nil {
		return fmt.Errorf("restore profile: %w", err)
	}

	if !hasToken || token == "" {
		if hasUser {
			m.logger.Warn("stored profile without a token, discarding it")
			if err := m.store.Delete(ctx, outbound.KeyUser); err != nil {
				m.logger.Error("failed to erase orphaned profile", "error", err)
			}
		}
		m.logger.Debug("session restored", "state", Anonymous.String())
		return nil
	}

	m.token = token
	if hasUser {
		var p UserProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			m.logger.Warn("stored profile is corrupt, discarding it", "error", err)
			if err := m.store.Delete(ctx, outbound.KeyUser); err != nil {
				m.logger.Error("failed to erase corrupt profile", "error", err)
			}
		} else {
			m.profile = &p
		}
	}
	m.logger.Debug("session restored", "state", Authenticated.String(), "has_profile", m.profile != nil)
	return nil
}

// Login exchanges the credentials for a token, stores it, then loads the
// profile. It never returns an error; failures are described by the result.
func (m *Manager) Login(ctx context.Context, username, password string) LoginResult {
	m.setAuthenticating(true)
	defer m.setAuthenticating(false)

	m.logger.Info("logging in", "username", username)

	token, err := m.exchanger.ExchangeCredentials(ctx, username, password)
	if err != nil {
		res := classifyLoginError(err)
		m.logger.Warn("login failed", "username", username, "reason", res.Failure.String(), "error", err)
		return res
	}

	// Storage first: the gateway attaches whatever storage holds, and
	// FetchProfile below goes through the gateway.
	m.writeMu.Lock()
	if err := m.store.Set(ctx, outbound.KeyToken, token); err != nil {
		m.writeMu.Unlock()
		m.logger.Error("failed to persist token", "error", err)
		return LoginResult{Failure: FailureUnknown, Message: MsgLoginFailed}
	}
	if err := m.store.Delete(ctx, outbound.KeyUser); err != nil {
		m.logger.Warn("failed to erase previous profile", "error", err)
	}
	m.mu.Lock()
	m.token = token
	m.profile = nil
	m.mu.Unlock()
	m.writeMu.Unlock()

	if err := m.FetchProfile(ctx); err != nil {
		res := classifyLoginError(err)
		m.logger.Warn("login failed while loading profile", "username", username, "reason", res.Failure.String())
		return res
	}

	m.logger.Info("login succeeded", "username", username)
	return LoginResult{Success: true}
}

// FetchProfile reloads the profile from the server and replaces the held
// one wholesale. Any failure logs the session out before it is returned:
// callers must treat an error as "session invalid".
func (m *Manager) FetchProfile(ctx context.Context) error {
	token := m.Token()
	if token == "" {
		m.logger.Debug("no token, cannot fetch profile")
		return ErrUnauthenticated
	}

	var p UserProfile
	if err := m.api.Get(ctx, ProfilePath, nil, &p); err != nil {
		if m.Token() != token {
			// The session this request belonged to is already gone.
			return fmt.Errorf("fetch profile: %w", err)
		}
		m.logger.Warn("profile refresh failed, logging out", "error", err)
		m.Logout(ctx)
		return fmt.Errorf("fetch profile: %w", err)
	}

	m.writeMu.Lock()
	if m.Token() != token {
		// Logged out, or logged in as someone else, while the request was
		// in flight. The response describes a session that no longer exists.
		m.writeMu.Unlock()
		m.logger.Debug("discarding profile of a replaced session", "user_id", p.ID)
		return ErrUnauthenticated
	}
	m.persistProfile(ctx, &p)
	m.mu.Lock()
	m.profile = &p
	m.mu.Unlock()
	m.writeMu.Unlock()

	m.logger.Debug("profile loaded", "user_id", p.ID, "role", string(p.Role), "favorites", len(p.FavoritedCourses))
	return nil
}

// Logout clears the session in memory and in storage. Idempotent.
func (m *Manager) Logout(ctx context.Context) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := m.store.Delete(context.WithoutCancel(ctx), outbound.KeyToken, outbound.KeyUser); err != nil {
		m.logger.Error("failed to erase stored session", "error", err)
	}

	m.mu.Lock()
	had := m.token != ""
	m.token = ""
	m.profile = nil
	m.mu.Unlock()

	if had {
		m.logger.Info("logged out")
	}
}

// Deauthorize is called by the gateway on a 401/403 response.
func (m *Manager) Deauthorize(ctx context.Context) {
	m.logger.Warn("session rejected by server")
	m.Logout(ctx)
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}

// HasToken is an alias of IsAuthenticated, named for the guard's checks.
func (m *Manager) HasToken() bool {
	return m.IsAuthenticated()
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.authenticating:
		return Authenticating
	case m.token != "":
		return Authenticated
	default:
		return Anonymous
	}
}

// Token returns the held token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Profile returns a copy of the held profile, or nil.
func (m *Manager) Profile() *UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile.Clone()
}

// IsCourseFavorited reports whether the profile lists courseID as a favorite.
func (m *Manager) IsCourseFavorited(courseID int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile.HasFavorite(courseID)
}

// ToggleFavorite flips a course in or out of the favorites. The profile is
// patched before the request, then confirmed with the server's answer or
// reverted if the request fails.
func (m *Manager) ToggleFavorite(ctx context.Context, courseID int) (bool, error) {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return false, ErrUnauthenticated
	}
	p := m.profile
	var was, wasOutdated bool
	if p != nil {
		was = p.HasFavorite(courseID)
		wasOutdated = p.FavoritedCourses == nil
		p.setFavorite(courseID, !was)
	}
	m.mu.Unlock()

	var resp struct {
		Favorited bool `json:"favorited"`
	}
	err := m.api.Post(ctx, fmt.Sprintf(toggleFavoritePath, courseID), nil, &resp)

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.mu.Lock()
	// Only touch the profile we patched; a logout or re-login replaced it.
	current := m.profile == p && p != nil
	if current {
		if err != nil {
			p.setFavorite(courseID, was)
			if wasOutdated && len(p.FavoritedCourses) == 0 {
				// Keep the outdated marker so the next guard check refreshes.
				p.FavoritedCourses = nil
			}
		} else {
			p.setFavorite(courseID, resp.Favorited)
		}
	}
	snapshot := m.profile.Clone()
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("favorite toggle failed, reverted", "course_id", courseID, "error", err)
		return false, fmt.Errorf("toggle favorite %d: %w", courseID, err)
	}
	if current {
		m.persistProfile(ctx, snapshot)
	}
	m.logger.Debug("favorite toggled", "course_id", courseID, "favorited", resp.Favorited)
	return resp.Favorited, nil
}

func (m *Manager) persistProfile(ctx context.Context, p *UserProfile) {
	data, err := json.Marshal(p)
	if err != nil {
		m.logger.Error("failed to encode profile", "error", err)
		return
	}
	if err := m.store.Set(ctx, outbound.KeyUser, string(data)); err != nil {
		m.logger.Error("failed to persist profile", "error", err)
	}
}

func (m *Manager) setAuthenticating(v bool) {
	m.mu.Lock()
	m.authenticating = v
	m.mu.Unlock()
}

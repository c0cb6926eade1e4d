package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
)

// handleAuthFailure is the inbound stage for 401/403. It never panics and
// never returns an error: whatever happens here, the caller receives the
// original response error.
func (g *Gateway) handleAuthFailure(ctx context.Context, cause *outbound.StatusError) {
	// Teardown must finish even if the request context is already done.
	ctx = context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("deauthorization panicked", "panic", r)
		}
	}()

	g.logger.Warn("authorization failure, logging out",
		"method", cause.Method, "path", cause.Path, "status", cause.Status)

	if err := g.deauthorizeSession(ctx); err != nil {
		g.logger.Error("session unavailable, clearing stored credentials directly", "error", err)
		g.fallbackDeauthorize(ctx)
	} else {
		g.countDeauthorization("session")
	}
	g.redirectToLogin()
}

// deauthorizeSession resolves the Deauthorizer and runs it, converting a
// missing binding or a panic into an error so the fallback can take over.
func (g *Gateway) deauthorizeSession(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deauthorizer panicked: %v", r)
		}
	}()

	g.resolveMu.RLock()
	resolve := g.resolve
	g.resolveMu.RUnlock()

	if resolve == nil {
		return ErrNotBound
	}
	d, err := resolve()
	if err != nil {
		return fmt.Errorf("resolve deauthorizer: %w", err)
	}
	if d == nil {
		return errors.New("resolver returned nil deauthorizer")
	}
	d.Deauthorize(ctx)
	return nil
}

// fallbackDeauthorize erases the credential keys without the session's help.
func (g *Gateway) fallbackDeauthorize(ctx context.Context) {
	g.countDeauthorization("fallback")
	if err := g.store.Delete(ctx, outbound.KeyToken, outbound.KeyUser); err != nil {
		g.logger.Error("failed to erase stored credentials", "error", err)
	}
}

// redirectToLogin forces a hard navigation to the login view unless the
// user is already there.
func (g *Gateway) redirectToLogin() {
	if g.nav == nil {
		return
	}
	if g.nav.CurrentPath() == g.cfg.LoginPath {
		return
	}
	g.nav.Navigate(g.cfg.LoginPath)
}

func (g *Gateway) countDeauthorization(path string) {
	if g.metrics == nil {
		return
	}
	g.metrics.DeauthorizationsTotal.WithLabelValues(path).Inc()
}

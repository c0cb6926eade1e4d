// Package guard decides, before each navigation, whether the current
// session may enter a route.
package guard

import (
	"context"
	"log/slog"
	"slices"

	"github.com/xu2799/it-platform-frontend/internal/domain/session"
)

// Decision reasons.
const (
	ReasonAllowed              = "allowed"
	ReasonProfileRefreshFailed = "profile_refresh_failed"
	ReasonUnauthenticated      = "unauthenticated"
	ReasonRoleDenied           = "role_denied"
	ReasonConditionDenied      = "condition_denied"
	ReasonAlreadyAuthenticated = "already_authenticated"
)

// Decision is the outcome of a check. A denied navigation carries the name
// of the route to go to instead.
type Decision struct {
	Allow    bool   `json:"allow" yaml:"allow"`
	Redirect string `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	// AccessDenied asks the caller to tell the user they lack permission.
	AccessDenied bool   `json:"access_denied,omitempty" yaml:"access_denied,omitempty"`
	Reason       string `json:"reason" yaml:"reason"`
}

// Session is the view of the Session Manager the guard needs.
// *session.Manager implements it.
type Session interface {
	HasToken() bool
	IsAuthenticated() bool
	Profile() *session.UserProfile
	FetchProfile(ctx context.Context) error
}

// ConditionEvaluator evaluates a route condition against the profile.
type ConditionEvaluator interface {
	EvaluateCondition(ctx context.Context, expr string, profile *session.UserProfile) (bool, error)
}

// Config names the routes the guard redirects to.
type Config struct {
	// LoginRoute receives unauthenticated users.
	LoginRoute string
	// EntryRoutes are the login and registration routes that authenticated
	// users are sent away from.
	EntryRoutes []string
	// DeniedRoute receives users who lack the required role.
	DeniedRoute string
	// LandingRoute receives authenticated users who hit an entry route.
	LandingRoute string
}

// DefaultConfig returns the platform's redirect targets.
func DefaultConfig() Config {
	return Config{
		LoginRoute:   "login",
		EntryRoutes:  []string{"login", "register"},
		DeniedRoute:  "home",
		LandingRoute: "courses",
	}
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithConditions enables route conditions.
func WithConditions(e ConditionEvaluator) Option {
	return func(g *Guard) {
		g.conditions = e
	}
}

// Guard is the navigation access-control decision function.
type Guard struct {
	session    Session
	cfg        Config
	conditions ConditionEvaluator
	logger     *slog.Logger
}

// New creates a Guard. Empty Config fields take their defaults.
func New(sess Session, cfg Config, opts ...Option) *Guard {
	def := DefaultConfig()
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = def.LoginRoute
	}
	if len(cfg.EntryRoutes) == 0 {
		cfg.EntryRoutes = def.EntryRoutes
	}
	if cfg.DeniedRoute == "" {
		cfg.DeniedRoute = def.DeniedRoute
	}
	if cfg.LandingRoute == "" {
		cfg.LandingRoute = def.LandingRoute
	}
	g := &Guard{
		session: sess,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check decides whether the session may enter to. Steps run in order:
//
//  1. An authenticated route with a token but a missing or outdated
//     profile waits for a profile refresh; a failed refresh sends the
//     user to login.
//  2. An authenticated route without a token sends the user to login.
//  3. A role allow-list or condition the profile does not satisfy denies
//     access and sends the user to the denied route.
//  4. An entry route with an authenticated session sends the user to the
//     landing route.
//  5. Anything else is allowed.
func (g *Guard) Check(ctx context.Context, to Route) Decision {
	log := g.logger.With("route", to.Name)

	if to.RequiresAuth && g.session.HasToken() && g.session.Profile().IsOutdated() {
		log.Debug("profile missing or outdated, refreshing")
		if err := g.session.FetchProfile(ctx); err != nil {
			log.Warn("profile refresh failed, redirecting to login", "error", err)
			return Decision{Redirect: g.cfg.LoginRoute, Reason: ReasonProfileRefreshFailed}
		}
	}

	if to.RequiresAuth && !g.session.IsAuthenticated() {
		log.Info("access denied: not logged in")
		return Decision{Redirect: g.cfg.LoginRoute, Reason: ReasonUnauthenticated}
	}

	if to.RequiresAuth {
		profile := g.session.Profile()
		if to.RestrictsRoles() && (profile == nil || !to.AllowsRole(profile.Role)) {
			log.Info("access denied: role not allowed", "role", roleOf(profile))
			return g.denied(ReasonRoleDenied)
		}
		if to.Condition != "" && !g.conditionHolds(ctx, log, to.Condition, profile) {
			log.Info("access denied: condition not met")
			return g.denied(ReasonConditionDenied)
		}
	}

	if slices.Contains(g.cfg.EntryRoutes, to.Name) && g.session.IsAuthenticated() {
		return Decision{Redirect: g.cfg.LandingRoute, Reason: ReasonAlreadyAuthenticated}
	}

	return Decision{Allow: true, Reason: ReasonAllowed}
}

func (g *Guard) denied(reason string) Decision {
	return Decision{Redirect: g.cfg.DeniedRoute, AccessDenied: true, Reason: reason}
}

// conditionHolds fails closed: no evaluator or an evaluation error denies.
func (g *Guard) conditionHolds(ctx context.Context, log *slog.Logger, expr string, profile *session.UserProfile) bool {
	if g.conditions == nil {
		log.Error("route has a condition but no evaluator is configured")
		return false
	}
	ok, err := g.conditions.EvaluateCondition(ctx, expr, profile)
	if err != nil {
		log.Error("route condition failed to evaluate", "error", err)
		return false
	}
	return ok
}

func roleOf(p *session.UserProfile) string {
	if p == nil {
		return ""
	}
	return string(p.Role)
}

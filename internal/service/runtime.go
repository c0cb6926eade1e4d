// Package service assembles the client runtime and implements the
// operations that span more than one component.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/xu2799/it-platform-frontend/internal/adapter/outbound/cel"
	"github.com/xu2799/it-platform-frontend/internal/adapter/outbound/gateway"
	"github.com/xu2799/it-platform-frontend/internal/adapter/outbound/memory"
	"github.com/xu2799/it-platform-frontend/internal/config"
	"github.com/xu2799/it-platform-frontend/internal/domain/course"
	"github.com/xu2799/it-platform-frontend/internal/domain/guard"
	"github.com/xu2799/it-platform-frontend/internal/domain/session"
	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
	"github.com/xu2799/it-platform-frontend/internal/telemetry"
)

// ErrUnknownRoute is returned by Navigate for a target that matches no route.
var ErrUnknownRoute = errors.New("unknown route")

// Option configures NewRuntime.
type Option func(*runtimeOptions)

type runtimeOptions struct {
	logger     *slog.Logger
	registry   prometheus.Registerer
	tracer     trace.Tracer
	httpClient *http.Client
	store      outbound.CredentialStore
	navigator  outbound.Navigator
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *runtimeOptions) { o.logger = logger }
}

// WithRegistry registers the runtime's metrics with reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *runtimeOptions) { o.registry = reg }
}

// WithTracer sets the tracer used for API request spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *runtimeOptions) { o.tracer = t }
}

// WithHTTPClient sets the HTTP client for API calls and the credential
// exchange.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *runtimeOptions) { o.httpClient = hc }
}

// WithStore replaces the configured durable storage.
func WithStore(s outbound.CredentialStore) Option {
	return func(o *runtimeOptions) { o.store = s }
}

// WithNavigator replaces the default recording navigator.
func WithNavigator(n outbound.Navigator) Option {
	return func(o *runtimeOptions) { o.navigator = n }
}

// Runtime is the assembled client runtime.
type Runtime struct {
	Store     outbound.CredentialStore
	Navigator outbound.Navigator
	Gateway   *gateway.Gateway
	Session   *session.Manager
	Courses   *course.Cache
	Routes    *guard.RouteTable
	Guard     *guard.Guard
	Favorites *FavoriteService
	Metrics   *telemetry.Metrics

	logger *slog.Logger
	close  func() error
}

// NewRuntime wires the components in dependency order: storage, gateway,
// session, then the gateway's late binding to the session, then the cache
// and the guard. The gateway never references the session package; it
// finds the session through the bound resolver when a 401/403 arrives.
func NewRuntime(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	o := runtimeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	routes, conditions, err := buildRoutes(cfg)
	if err != nil {
		return nil, err
	}

	closeStore := func() error { return nil }
	store := o.store
	if store == nil {
		store, closeStore, err = OpenStore(ctx, cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
	}

	nav := o.navigator
	if nav == nil {
		nav = memory.NewNavigator(cfg.Navigation.StartPath)
	}

	var metrics *telemetry.Metrics
	if o.registry != nil {
		metrics = telemetry.NewMetrics(o.registry)
	}

	gwOpts := []gateway.Option{
		gateway.WithLogger(logger.With("component", "gateway")),
		gateway.WithMetrics(metrics),
	}
	if o.httpClient != nil {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(o.httpClient))
	}
	if o.tracer != nil {
		gwOpts = append(gwOpts, gateway.WithTracer(o.tracer))
	}
	gw := gateway.New(gateway.Config{
		BaseURL:    cfg.API.BaseURL,
		AuthScheme: cfg.API.AuthScheme,
		LoginPath:  routes.PathOf(cfg.Navigation.LoginRoute),
		Timeout:    cfg.API.TimeoutDuration(),
	}, store, nav, gwOpts...)

	exchangeClient := o.httpClient
	if exchangeClient == nil {
		exchangeClient = &http.Client{Timeout: gw.Config().Timeout}
	}
	exchanger := gateway.NewTokenClient(gw.Config().BaseURL, exchangeClient, logger.With("component", "token_client"))

	mgr, err := session.NewManager(ctx, store, gw, exchanger, logger.With("component", "session"))
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	gw.Bind(func() (gateway.Deauthorizer, error) { return mgr, nil })

	cacheOpts := []course.Option{course.WithLogger(logger.With("component", "cache"))}
	if metrics != nil {
		cacheOpts = append(cacheOpts, course.WithObserver(metrics))
	}
	cache := course.NewCache(gw, cacheOpts...)

	g := guard.New(mgr, guard.Config{
		LoginRoute:   cfg.Navigation.LoginRoute,
		EntryRoutes:  cfg.Navigation.EntryRoutes,
		DeniedRoute:  cfg.Navigation.DeniedRoute,
		LandingRoute: cfg.Navigation.LandingRoute,
	}, guard.WithLogger(logger.With("component", "guard")), guard.WithConditions(conditions))

	return &Runtime{
		Store:     store,
		Navigator: nav,
		Gateway:   gw,
		Session:   mgr,
		Courses:   cache,
		Routes:    routes,
		Guard:     g,
		Favorites: NewFavoriteService(mgr, cache, logger),
		Metrics:   metrics,
		logger:    logger,
		close:     closeStore,
	}, nil
}

// buildRoutes merges configured routes over the built-in table and
// validates every route condition.
func buildRoutes(cfg *config.Config) (*guard.RouteTable, *cel.Evaluator, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, nil, err
	}

	routes := guard.DefaultRoutes()
	for _, rc := range cfg.Routes {
		r := guard.Route{
			Name:         rc.Name,
			Path:         rc.Path,
			RequiresAuth: rc.RequiresAuth,
			Condition:    rc.Condition,
		}
		for _, role := range rc.RequiredRoles {
			parsed, err := session.ParseRole(role)
			if err != nil {
				return nil, nil, fmt.Errorf("route %q: %w", rc.Name, err)
			}
			r.RequiredRoles = append(r.RequiredRoles, parsed)
		}
		if r.Condition != "" {
			if err := evaluator.ValidateExpression(r.Condition); err != nil {
				return nil, nil, fmt.Errorf("route %q: %w", rc.Name, err)
			}
		}
		replaced := false
		for i := range routes {
			if routes[i].Name == r.Name {
				routes[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			routes = append(routes, r)
		}
	}

	table, err := guard.NewRouteTable(routes)
	if err != nil {
		return nil, nil, fmt.Errorf("build route table: %w", err)
	}
	return table, evaluator, nil
}

// Bootstrap verifies a session restored from storage. If a token was
// stored, the profile is fetched; a failure has already logged the session
// out, so the runtime continues anonymous and Bootstrap returns nil.
func (r *Runtime) Bootstrap(ctx context.Context) error {
	if !r.Session.HasToken() {
		r.logger.Debug("no stored session")
		return nil
	}
	if err := r.Session.FetchProfile(ctx); err != nil {
		r.logger.Warn("stored session is no longer valid, continuing anonymous", "error", err)
		return nil
	}
	if p := r.Session.Profile(); p != nil {
		r.logger.Info("session restored", "username", p.Username, "role", string(p.Role))
	}
	return nil
}

// Login logs in and marks the course cache stale, since like and favorite
// flags are per user.
func (r *Runtime) Login(ctx context.Context, username, password string) session.LoginResult {
	res := r.Session.Login(ctx, username, password)
	if res.Success {
		r.Courses.MarkAsStale()
	}
	return res
}

// Logout logs out and marks the course cache stale.
func (r *Runtime) Logout(ctx context.Context) {
	r.Session.Logout(ctx)
	r.Courses.MarkAsStale()
}

// Navigation is the outcome of Navigate.
type Navigation struct {
	Route    guard.Route    `json:"route" yaml:"route"`
	Decision guard.Decision `json:"decision" yaml:"decision"`
	// Path is where the navigator ended up.
	Path string `json:"path" yaml:"path"`
}

// Navigate runs the guard for target (a route name or a concrete path) and
// moves the navigator to target or to the guard's redirect.
func (r *Runtime) Navigate(ctx context.Context, target string) (Navigation, error) {
	route, ok := r.Routes.Resolve(target)
	if !ok {
		return Navigation{}, fmt.Errorf("%w: %s", ErrUnknownRoute, target)
	}
	path := target
	if !strings.HasPrefix(target, "/") {
		if strings.Contains(route.Path, ":") {
			return Navigation{}, fmt.Errorf("route %q has parameters; navigate to a path such as %s", route.Name, route.Path)
		}
		path = route.Path
	}

	d := r.Guard.Check(ctx, route)
	if !d.Allow {
		path = r.Routes.PathOf(d.Redirect)
	}
	r.Navigator.Navigate(path)
	r.logger.Debug("navigated", "target", target, "path", path, "allowed", d.Allow, "reason", d.Reason)
	return Navigation{Route: route, Decision: d, Path: path}, nil
}

// Close releases the durable storage.
func (r *Runtime) Close() error {
	return r.close()
}

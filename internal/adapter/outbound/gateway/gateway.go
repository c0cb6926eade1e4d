// Package gateway is the HTTP Gateway: every API call of the client runtime
// goes through it. An outbound stage attaches the stored credential to each
// request; an inbound stage watches every response for 401/403 and tears
// the session down when it sees one.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
	"github.com/xu2799/it-platform-frontend/internal/telemetry"
)

// Defaults for Config fields left empty.
const (
	DefaultBaseURL    = "http://127.0.0.1:8000"
	DefaultAuthScheme = "Token"
	DefaultLoginPath  = "/login"
	DefaultTimeout    = 10 * time.Second
)

// ErrNotBound is returned by the deauthorizer lookup when no resolver has
// been bound yet.
var ErrNotBound = errors.New("no deauthorizer bound")

// Deauthorizer clears the session after an authorization failure.
// The Session Manager implements it.
type Deauthorizer interface {
	Deauthorize(ctx context.Context)
}

// Resolver looks the Deauthorizer up at the moment it is needed. The gateway
// is built before the session exists, so it never holds a direct reference.
type Resolver func() (Deauthorizer, error)

// Config holds gateway settings.
type Config struct {
	// BaseURL is prefixed to every request path.
	BaseURL string
	// AuthScheme is the Authorization header scheme, e.g. "Token".
	AuthScheme string
	// LoginPath is where the user is sent after deauthorization.
	LoginPath string
	// Timeout bounds each request when no custom http.Client is set.
	Timeout time.Duration
}

func (c *Config) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.AuthScheme == "" {
		c.AuthScheme = DefaultAuthScheme
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Gateway implements outbound.API.
//
// SECURITY: the credential is never logged. Only method, path, status and
// request id appear in log output.
type Gateway struct {
	cfg        Config
	store      outbound.CredentialStore
	nav        outbound.Navigator
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *telemetry.Metrics
	tracer     trace.Tracer

	resolveMu sync.RWMutex
	resolve   Resolver
}

var _ outbound.API = (*Gateway)(nil)

// New creates a Gateway reading credentials from store and redirecting
// through nav. nav may be nil when there is nothing to redirect.
func New(cfg Config, store outbound.CredentialStore, nav outbound.Navigator, opts ...Option) *Gateway {
	cfg.setDefaults()
	g := &Gateway{
		cfg:    cfg,
		store:  store,
		nav:    nav,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if g.tracer == nil {
		g.tracer = otel.Tracer(telemetry.TracerName)
	}
	return g
}

// Bind registers the resolver used to find the Deauthorizer on a 401/403.
// Calling Bind again replaces the previous resolver.
func (g *Gateway) Bind(r Resolver) {
	g.resolveMu.Lock()
	defer g.resolveMu.Unlock()
	g.resolve = r
}

// BindDeauthorizer is a convenience for Bind with a fixed target.
func (g *Gateway) BindDeauthorizer(d Deauthorizer) {
	g.Bind(func() (Deauthorizer, error) { return d, nil })
}

// Config returns the effective configuration.
func (g *Gateway) Config() Config {
	return g.cfg
}

// Get issues a GET request and decodes the JSON response into out.
func (g *Gateway) Get(ctx context.Context, path string, query url.Values, out any) error {
	body, err := g.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// GetRaw issues a GET request and returns the raw response body.
func (g *Gateway) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return g.do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST request with a JSON body and decodes the response.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	resp, err := g.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// do runs one request through both interceptor stages.
func (g *Gateway) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	requestID := uuid.NewString()

	ctx, span := g.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	req, err := g.newRequest(ctx, method, path, query, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	req.Header.Set("X-Request-ID", requestID)
	g.attachCredential(ctx, req)

	start := time.Now()
	respBody, status, err := execute(ctx, g.httpClient, req)
	g.observe(method, status, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var se *outbound.StatusError
		if errors.As(err, &se) && se.IsAuthFailure() {
			g.handleAuthFailure(ctx, se)
		} else if !isContextError(err) {
			g.logger.Debug("api request failed",
				"method", method, "path", path, "request_id", requestID, "error", err)
		}
		// The caller's own error handling still runs.
		return nil, err
	}

	g.logger.Debug("api request completed",
		"method", method, "path", path, "status", status, "request_id", requestID)
	return respBody, nil
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := g.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// attachCredential is the outbound stage. The token is read from durable
// storage on every call, never from the Session Manager's memory, so a
// gateway built before the session still sends the current credential.
func (g *Gateway) attachCredential(ctx context.Context, req *http.Request) {
	token, ok, err := g.store.Get(ctx, outbound.KeyToken)
	if err != nil {
		g.logger.Warn("failed to read stored credential, sending request without it",
			"path", req.URL.Path, "error", err)
		return
	}
	if ok && token != "" {
		req.Header.Set("Authorization", g.cfg.AuthScheme+" "+token)
	}
}

func (g *Gateway) observe(method string, status int, elapsed time.Duration) {
	if g.metrics == nil {
		return
	}
	g.metrics.RequestsTotal.WithLabelValues(method, telemetry.StatusClass(status)).Inc()
	g.metrics.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

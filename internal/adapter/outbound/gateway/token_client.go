package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
)

// TokenAuthPath is the credential-exchange endpoint.
const TokenAuthPath = "/api/token-auth/"

// ErrNoToken is returned when the server accepted the credentials but sent
// no token back.
var ErrNoToken = outbound.ErrNoToken

// TokenClient implements outbound.CredentialExchanger. It deliberately
// bypasses the Gateway: there is no credential to attach yet, and a 400/401
// here means "wrong password", not "session expired".
type TokenClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ outbound.CredentialExchanger = (*TokenClient)(nil)

// NewTokenClient creates a TokenClient. hc and logger may be nil.
func NewTokenClient(baseURL string, hc *http.Client, logger *slog.Logger) *TokenClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		logger:     logger,
	}
}

// ExchangeCredentials posts the credentials and returns the issued token.
func (c *TokenClient) ExchangeCredentials(ctx context.Context, username, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+TokenAuthPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, _, err := execute(ctx, c.httpClient, req)
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := decode(body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", ErrNoToken
	}
	c.logger.Debug("credential exchange succeeded", "username", username)
	return resp.Token, nil
}

package session

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
)

// mockAPI answers requests from canned responses keyed by "METHOD path".
type mockAPI struct {
	mu        sync.Mutex
	responses map[string]mockResponse
	calls     []string
	// onCall, if set, runs before the response is produced.
	onCall func(key string)
}

type mockResponse struct {
	body string
	err  error
}

func newMockAPI() *mockAPI {
	return &mockAPI{responses: make(map[string]mockResponse)}
}

func (a *mockAPI) on(method, path, body string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[method+" "+path] = mockResponse{body: body, err: err}
}

func (a *mockAPI) respond(key string, out any) error {
	a.mu.Lock()
	a.calls = append(a.calls, key)
	resp, ok := a.responses[key]
	hook := a.onCall
	a.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	if !ok {
		return &outbound.StatusError{Status: 404}
	}
	if resp.err != nil {
		return resp.err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(resp.body), out)
}

func (a *mockAPI) Get(_ context.Context, path string, _ url.Values, out any) error {
	return a.respond("GET "+path, out)
}

func (a *mockAPI) GetRaw(_ context.Context, path string, _ url.Values) ([]byte, error) {
	var raw json.RawMessage
	err := a.respond("GET "+path, &raw)
	return raw, err
}

func (a *mockAPI) Post(_ context.Context, path string, _, out any) error {
	return a.respond("POST "+path, out)
}

func (a *mockAPI) callCount(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c == key {
			n++
		}
	}
	return n
}

// mockExchanger returns a fixed token or error.
type mockExchanger struct {
	token string
	err   error
	calls int
}

func (e *mockExchanger) ExchangeCredentials(_ context.Context, _, _ string) (string, error) {
	e.calls++
	return e.token, e.err
}

// orderedStore records the order of writes, to check the storage-first rule.
type orderedStore struct {
	outbound.CredentialStore
	onSet func(key string)
}

func (s *orderedStore) Set(ctx context.Context, key, value string) error {
	if s.onSet != nil {
		s.onSet(key)
	}
	return s.CredentialStore.Set(ctx, key, value)
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
)

func TestTokenClient_ExchangeCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != TokenAuthPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("credential exchange must not carry an Authorization header")
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["username"] != "alice" || body["password"] != "pw" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"non_field_errors":["Unable to log in with provided credentials."]}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "T1"})
	}))
	defer server.Close()

	c := NewTokenClient(server.URL, nil, quietLogger())

	token, err := c.ExchangeCredentials(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("ExchangeCredentials() error = %v", err)
	}
	if token != "T1" {
		t.Errorf("token = %q, want T1", token)
	}

	_, err = c.ExchangeCredentials(context.Background(), "alice", "wrong")
	var se *outbound.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
	if se.Detail != "Unable to log in with provided credentials." {
		t.Errorf("Detail = %q", se.Detail)
	}
}

func TestTokenClient_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewTokenClient(server.URL, nil, quietLogger())
	if _, err := c.ExchangeCredentials(context.Background(), "a", "b"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

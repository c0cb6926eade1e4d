package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// execute sends req and maps the outcome onto the outbound error taxonomy:
// transport failures become *outbound.NetworkError, non-2xx responses
// become *outbound.StatusError. Context cancellation is returned as is.
func execute(ctx context.Context, hc *http.Client, req *http.Request) (body []byte, status int, err error) {
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, &outbound.NetworkError{Method: req.Method, Path: req.URL.Path, Cause: err}
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, &outbound.NetworkError{
			Method: req.Method,
			Path:   req.URL.Path,
			Cause:  fmt.Errorf("read response body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, &outbound.StatusError{
			Method: req.Method,
			Path:   req.URL.Path,
			Status: resp.StatusCode,
			Detail: detailOf(body),
			Body:   body,
		}
	}
	return body, resp.StatusCode, nil
}

// detailOf extracts the server's error message from a JSON body of the
// form {"detail": "..."} or {"non_field_errors": ["..."]}.
func detailOf(body []byte) string {
	var payload struct {
		Detail         string   `json:"detail"`
		NonFieldErrors []string `json:"non_field_errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	if len(payload.NonFieldErrors) > 0 {
		return payload.NonFieldErrors[0]
	}
	return ""
}

// decode unmarshals body into out unless out is nil or body is empty.
func decode(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// isContextError reports whether err came from context cancellation.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

package session

import (
	"context"
	"errors"

	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
)

// ErrUnauthenticated is returned by operations that need a credential
// when none is held.
var ErrUnauthenticated = errors.New("authentication required")

// FailureKind classifies why a login or mutation failed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureInvalidCredentials
	FailureServer
	FailureNetwork
	FailureValidation
	FailureUnknown
)

// User-facing messages per failure kind.
const (
	MsgInvalidCredentials = "username or password incorrect"
	MsgServerError        = "server error, please try again later"
	MsgNetworkError       = "network error, please check your connection"
	MsgLoginFailed        = "login failed, please try again"
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureInvalidCredentials:
		return "invalid_credentials"
	case FailureServer:
		return "server_error"
	case FailureNetwork:
		return "network_unreachable"
	case FailureValidation:
		return "validation_error"
	}
	return "unknown"
}

// LoginResult is the outcome of Login. It is never accompanied by an error:
// every failure is described here.
type LoginResult struct {
	Success bool
	Failure FailureKind
	// Message is safe to show to the user.
	Message string
}

// classifyLoginError maps a credential-exchange or profile failure onto the
// login failure taxonomy.
func classifyLoginError(err error) LoginResult {
	var se *outbound.StatusError
	switch {
	case errors.As(err, &se) && (se.Status == 400 || se.Status == 401):
		return LoginResult{Failure: FailureInvalidCredentials, Message: MsgInvalidCredentials}
	case errors.Is(err, outbound.ErrServer):
		return LoginResult{Failure: FailureServer, Message: MsgServerError}
	case errors.Is(err, outbound.ErrNetworkUnreachable):
		return LoginResult{Failure: FailureNetwork, Message: MsgNetworkError}
	case errors.Is(err, outbound.ErrValidation):
		msg := MsgLoginFailed
		if se.Detail != "" {
			msg = se.Detail
		}
		return LoginResult{Failure: FailureValidation, Message: msg}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return LoginResult{Failure: FailureNetwork, Message: MsgNetworkError}
	case errors.Is(err, outbound.ErrNoToken):
		return LoginResult{Failure: FailureUnknown, Message: outbound.ErrNoToken.Error()}
	}
	return LoginResult{Failure: FailureUnknown, Message: MsgLoginFailed}
}

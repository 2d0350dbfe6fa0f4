package oidc

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/exp/slog"
)

type errorType string

const (
	InvalidRequest        errorType = "invalid_request"
	InvalidScope          errorType = "invalid_scope"
	InvalidClient         errorType = "invalid_client"
	InvalidGrant          errorType = "invalid_grant"
	UnauthorizedClient    errorType = "unauthorized_client"
	UnsupportedGrantType  errorType = "unsupported_grant_type"
	ServerError           errorType = "server_error"
	AccessDenied          errorType = "access_denied"
	ExpiredToken          errorType = "expired_token"
	AuthorizationPending  errorType = "authorization_pending"
	SlowDown              errorType = "slow_down"
	TransactionFailed     errorType = "transaction_failed"
	InvalidClientMetadata errorType = "invalid_client_metadata"

	// CIBA specific error codes, see
	// https://openid.net/specs/openid-client-initiated-backchannel-authentication-core-1_0.html#rfc.section.13
	UnknownUserID         errorType = "unknown_user_id"
	InvalidBindingMessage errorType = "invalid_binding_message"
	MissingUserCode       errorType = "missing_user_code"
	InvalidUserCode       errorType = "invalid_user_code"
	ExpiredLoginHintToken errorType = "expired_login_hint_token"
)

var (
	ErrInvalidRequest = func() *Error {
		return &Error{
			ErrorType: InvalidRequest,
		}
	}
	ErrInvalidScope = func() *Error {
		return &Error{
			ErrorType: InvalidScope,
		}
	}
	ErrInvalidClient = func() *Error {
		return &Error{
			ErrorType: InvalidClient,
		}
	}
	ErrInvalidGrant = func() *Error {
		return &Error{
			ErrorType: InvalidGrant,
		}
	}
	ErrUnauthorizedClient = func() *Error {
		return &Error{
			ErrorType: UnauthorizedClient,
		}
	}
	ErrUnsupportedGrantType = func() *Error {
		return &Error{
			ErrorType: UnsupportedGrantType,
		}
	}
	ErrServerError = func() *Error {
		return &Error{
			ErrorType: ServerError,
		}
	}

	// ErrAccessDenied should be used when the end-user denied the request
	// or the auth_req_id is not known to the client.
	ErrAccessDenied = func() *Error {
		return &Error{
			ErrorType:   AccessDenied,
			Description: "The authorization request was denied.",
		}
	}

	// ErrExpiredToken should be used when the auth_req_id has expired
	// before the end-user answered.
	ErrExpiredToken = func() *Error {
		return &Error{
			ErrorType:   ExpiredToken,
			Description: "The auth_req_id has expired.",
		}
	}

	// ErrAuthorizationPending is returned to polling clients
	// while the end-user has not answered yet.
	ErrAuthorizationPending = func() *Error {
		return &Error{
			ErrorType:   AuthorizationPending,
			Description: "The end-user has not answered yet.",
		}
	}

	// ErrSlowDown is returned to polling clients which
	// do not respect the announced interval.
	ErrSlowDown = func() *Error {
		return &Error{
			ErrorType:   SlowDown,
			Description: "Polling too frequently.",
		}
	}

	ErrTransactionFailed = func() *Error {
		return &Error{
			ErrorType: TransactionFailed,
		}
	}
	ErrInvalidClientMetadata = func() *Error {
		return &Error{
			ErrorType: InvalidClientMetadata,
		}
	}
	ErrUnknownUserID = func() *Error {
		return &Error{
			ErrorType: UnknownUserID,
		}
	}
	ErrInvalidBindingMessage = func() *Error {
		return &Error{
			ErrorType: InvalidBindingMessage,
		}
	}
	ErrMissingUserCode = func() *Error {
		return &Error{
			ErrorType:   MissingUserCode,
			Description: "user_code is required for this client.",
		}
	}
	ErrInvalidUserCode = func() *Error {
		return &Error{
			ErrorType: InvalidUserCode,
		}
	}
	ErrExpiredLoginHintToken = func() *Error {
		return &Error{
			ErrorType: ExpiredLoginHintToken,
		}
	}
)

type Error struct {
	Parent      error     `json:"-" schema:"-"`
	ErrorType   errorType `json:"error" schema:"error"`
	Description string    `json:"error_description,omitempty" schema:"error_description,omitempty"`
	State       string    `json:"state,omitempty" schema:"state,omitempty"`
}

func (e *Error) Error() string {
	message := "ErrorType=" + string(e.ErrorType)
	if e.Description != "" {
		message += " Description=" + e.Description
	}
	if e.Parent != nil {
		message += " Parent=" + e.Parent.Error()
	}
	return message
}

func (e *Error) Unwrap() error {
	return e.Parent
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.ErrorType == t.ErrorType &&
		(e.Description == t.Description || t.Description == "") &&
		(e.State == t.State || t.State == "")
}

func (e *Error) WithParent(err error) *Error {
	e.Parent = err
	return e
}

func (e *Error) WithDescription(desc string, args ...any) *Error {
	e.Description = fmt.Sprintf(desc, args...)
	return e
}

// StatusCode returns the HTTP status an error response
// should be written with.
// Client authentication failures are 401,
// server errors 500 and everything else 400.
func (e *Error) StatusCode() int {
	switch e.ErrorType {
	case InvalidClient:
		return http.StatusUnauthorized
	case ServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// DefaultToServerError checks if the error is an Error
// if not the provided error will be wrapped into a ServerError
func DefaultToServerError(err error, description string) *Error {
	oauth := new(Error)
	if ok := errors.As(err, &oauth); !ok {
		oauth = &Error{
			ErrorType:   ServerError,
			Description: description,
			Parent:      err,
		}
	}
	return oauth
}

func (e *Error) LogLevel() slog.Level {
	level := slog.LevelWarn
	switch e.ErrorType {
	case ServerError:
		level = slog.LevelError
	case AuthorizationPending, SlowDown:
		level = slog.LevelInfo
	}
	return level
}

func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 4)
	if e.Parent != nil {
		attrs = append(attrs, slog.Any("parent", e.Parent))
	}
	if e.Description != "" {
		attrs = append(attrs, slog.String("description", e.Description))
	}
	if e.ErrorType != "" {
		attrs = append(attrs, slog.String("type", string(e.ErrorType)))
	}
	if e.State != "" {
		attrs = append(attrs, slog.String("state", e.State))
	}
	return slog.GroupValue(attrs...)
}

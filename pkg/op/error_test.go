package op

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"

	"github.com/zitadel/ciba/pkg/oidc"
)

func TestRequestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
		wantAuth   string
		wantLog    string
	}{
		{
			name:       "invalid client",
			err:        oidc.ErrInvalidClient().WithDescription("unknown client").WithParent(io.EOF),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"invalid_client","error_description":"unknown client"}`,
			wantAuth:   `Basic realm="ciba"`,
			wantLog:    "level=WARN",
		},
		{
			name:       "invalid request",
			err:        fmt.Errorf("wrapped: %w", oidc.ErrInvalidRequest().WithDescription("scope is required")),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid_request","error_description":"scope is required"}`,
			wantLog:    "level=WARN",
		},
		{
			name:       "authorization pending",
			err:        oidc.ErrAuthorizationPending(),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"authorization_pending","error_description":"The end-user has not answered yet."}`,
			wantLog:    "level=INFO",
		},
		{
			name:       "plain error",
			err:        errors.New("database on fire"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"server_error","error_description":"internal server error"}`,
			wantLog:    "level=ERROR",
		},
		{
			name:       "deadline",
			err:        fmt.Errorf("get grant: %w", context.DeadlineExceeded),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"server_error","error_description":"request timed out"}`,
			wantLog:    "level=ERROR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			r := httptest.NewRequest(http.MethodPost, "/bc-authorize", nil)
			w := httptest.NewRecorder()

			RequestError(w, r, tt.err, logger)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.Equal(t, tt.wantAuth, w.Header().Get("WWW-Authenticate"))
			assert.Contains(t, logs.String(), tt.wantLog)
			assert.NotContains(t, w.Body.String(), "database on fire")
		})
	}
}

package op

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/exp/slog"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// RequestError writes err as OAuth error response.
// Errors which are not an [*oidc.Error] are reported as server_error
// without leaking their message to the client.
func RequestError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	e := oidc.DefaultToServerError(err, "internal server error")
	if errors.Is(err, context.DeadlineExceeded) && e.ErrorType == oidc.ServerError {
		e.Description = "request timed out"
	}
	status := e.StatusCode()
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="ciba"`)
	}
	logger.Log(r.Context(), e.LogLevel(), "request error", "oidc_error", e, "status_code", status)
	httphelper.MarshalJSONWithStatus(w, e, status)
}

package static

import (
	"errors"
	"net/http"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/op"
)

// AnswerEndpoint is mounted in dev mode only.
const AnswerEndpoint = "/device/answer"

type answerResponse struct {
	AuthReqID string         `json:"auth_req_id"`
	Status    op.GrantStatus `json:"status"`
}

// AnswerHandler stands in for the authentication device: a POST with the
// form values auth_req_id and action (approve or deny) resolves the grant.
func AnswerHandler(grants *op.GrantStateMachine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authReqID := r.FormValue("auth_req_id")
		if authReqID == "" {
			http.Error(w, "auth_req_id missing", http.StatusBadRequest)
			return
		}
		var approved bool
		switch r.FormValue("action") {
		case "approve":
			approved = true
		case "deny":
		default:
			http.Error(w, "action must be approve or deny", http.StatusBadRequest)
			return
		}
		status, err := grants.Answer(r.Context(), authReqID, approved)
		if errors.Is(err, op.ErrGrantNotFound) {
			http.Error(w, "unknown auth_req_id", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		httphelper.MarshalJSON(w, answerResponse{AuthReqID: authReqID, Status: status})
	}
}

package op

import (
	"context"
	"net/http"

	httphelper "github.com/zitadel/ciba/pkg/http"
)

type ProbesFn func(context.Context) error

type Status struct {
	Status string `json:"status,omitempty"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	ok(w)
}

func readyHandler(probes []ProbesFn) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ReadyCheck(r.Context(), probes...); err != nil {
			httphelper.MarshalJSONWithStatus(w, Status{"not ready"}, http.StatusServiceUnavailable)
			return
		}
		ok(w)
	}
}

// ReadyCheck runs every probe and returns the first failure.
func ReadyCheck(ctx context.Context, probes ...ProbesFn) error {
	for _, probe := range probes {
		if err := probe(ctx); err != nil {
			return err
		}
	}
	return nil
}

func ok(w http.ResponseWriter) {
	httphelper.MarshalJSON(w, Status{"ok"})
}

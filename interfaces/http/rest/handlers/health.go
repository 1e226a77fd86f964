package handlers

import (
	"net/http"

	"rxsync/pkg/common"
	"rxsync/pkg/utils"
)

// Health handles GET and HEAD /health. Reachability probes use HEAD, so
// the endpoint must answer both.
func Health(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": utils.NowRFC3339(),
	})
}

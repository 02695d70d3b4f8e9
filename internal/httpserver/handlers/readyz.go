package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// Readyz reports ready once the registry is loaded and, with redis storage,
// redis answers.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Registry == nil {
			writeJSON(w, d.Logger, http.StatusServiceUnavailable, readyzResponse{Reason: "registry not loaded"})
			return
		}
		if d.RedisClient != nil {
			if st := checkRedis(r.Context(), d); !st.OK {
				writeJSON(w, d.Logger, http.StatusServiceUnavailable, readyzResponse{Reason: "redis " + st.Error})
				return
			}
		}
		writeJSON(w, d.Logger, http.StatusOK, readyzResponse{Ready: true})
	}
}

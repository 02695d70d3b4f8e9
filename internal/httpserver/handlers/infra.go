package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
)

type componentStatus struct {
	OK          bool   `json:"ok"`
	Sources     *int   `json:"sources,omitempty"`
	Documents   *int   `json:"documents,omitempty"`
	Failed      *int   `json:"failed_sources,omitempty"`
	LastRefresh string `json:"last_refresh,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Error       string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceCount := d.Registry.Len()
		snap := d.Index.Snapshot()
		docCount := len(snap.Documents)

		lastRefresh := "never"
		if !snap.LastRefresh.IsZero() {
			lastRefresh = snap.LastRefresh.Format("2006-01-02 15:04:05")
		}
		catalogMode := "idle"
		if snap.Refreshing {
			catalogMode = "refreshing"
		}

		components := map[string]componentStatus{
			"registry": {
				OK:      true,
				Sources: &sourceCount,
				Mode:    d.Storage,
			},
			"catalog": {
				OK:          snap.Failed == 0,
				Documents:   &docCount,
				Failed:      &snap.Failed,
				LastRefresh: lastRefresh,
				Mode:        catalogMode,
			},
		}
		if d.RedisClient != nil {
			components["redis"] = checkRedis(r.Context(), d)
		}

		writeJSON(w, d.Logger, http.StatusOK, infraResponse{
			Status:     determineStatus(components),
			Components: components,
		})
	}
}

func determineStatus(components map[string]componentStatus) string {
	// Sources can't be read or written without redis
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "critical"
	}

	// Some sources failed on the last refresh
	if catalog, exists := components["catalog"]; exists && !catalog.OK {
		return "degraded"
	}

	return "operational"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Impact: "sources-unavailable",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Impact: "sources-unavailable",
			Error:  "timeout",
		}
	}

	return componentStatus{
		OK:   true,
		Mode: "optimal",
	}
}

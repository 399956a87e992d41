package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/league/pkg/httpx"
	"github.com/aussiebroadwan/league/pkg/linksdk"
)

// Pinger is the part of the store readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler reports degraded with 503 while the database is unreachable.
func ReadyzHandler(startTime time.Time, version string, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &linksdk.HealthChecks{Database: "ok"}
		status := "ok"
		code := http.StatusOK

		if err := db.Ping(r.Context()); err != nil {
			checks.Database = "error"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, linksdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// Package http wires the module handlers, middleware chain and operational
// endpoints into the server router.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authzmiddleware "ctn/internal/authz/middleware"
	"ctn/pkg/platform/middleware/metadata"
	"ctn/pkg/platform/middleware/requestid"
	"ctn/pkg/platform/middleware/requesttime"
)

// Registrar mounts a module's endpoints on the router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports reachability of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs.
type Deps struct {
	Logger    *slog.Logger
	Validator authzmiddleware.TokenValidator

	Organizations Registrar
	DNSVerify     Registrar
	IdentVerify   Registrar
	Authz         Registrar

	// Health dependencies; nil entries are skipped.
	Health map[string]HealthChecker
}

// NewRouter builds the server router. Business endpoints sit behind the
// authentication middleware; /healthz and /metrics stay open for probes and
// scrapers.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", handleHealth(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authzmiddleware.RequireAuth(deps.Validator, deps.Logger))
		deps.Organizations.Register(r)
		deps.DNSVerify.Register(r)
		deps.IdentVerify.Register(r)
		deps.Authz.Register(r)
	})

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		report := make(map[string]string, len(checks)+1)
		report["status"] = "ok"
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				report["status"] = "degraded"
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	}
}

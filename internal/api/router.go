package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nekostore/neko-object/internal/backup"
	"github.com/nekostore/neko-object/internal/config"
	"github.com/nekostore/neko-object/internal/download"
	"github.com/nekostore/neko-object/internal/metrics"
	"github.com/nekostore/neko-object/internal/rangestream"
	"github.com/nekostore/neko-object/internal/store"
	"github.com/nekostore/neko-object/internal/upload"
)

// requestTimeout bounds any single request, long enough to cover a full
// 8 MiB chunk upload/download over a slow link (spec.md §5).
const requestTimeout = 255 * time.Second

// Deps are the engines and shared state wired into the router's handlers.
type Deps struct {
	Index      *store.Index
	Upload     *upload.Engine
	Download   *download.Engine
	Range      *rangestream.Engine
	Backup     *backup.Protocol
	Metrics    *metrics.Metrics
	Auth       config.AuthConfig
	DBConfig   *config.DatabaseConfig
	AppVersion string
}

// NewRouter builds the chi router for the full spec.md §6 route tree.
func NewRouter(deps Deps) http.Handler {
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(instrument(deps.Metrics))

	// Health is exempt from auth so orchestrators can probe it.
	r.Get("/api/system/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(deps.Auth.Secret))

		r.Route("/api/upload/file", func(r chi.Router) {
			r.Post("/init", h.uploadInit)
			r.Post("/{id}/chunk", h.uploadChunk)
			r.Get("/{id}/chunks", h.uploadChunks)
			r.Post("/{id}/finalize", h.uploadFinalize)
			r.Post("/{id}/abort", h.uploadAbort)
			r.Delete("/pending/all", h.uploadPurgePending)
		})

		r.Route("/api/files", func(r chi.Router) {
			r.Get("/", h.filesList)
			r.Get("/search", h.filesSearch)
			r.Delete("/trash", h.filesEmptyTrash)
			r.Get("/{id}", h.filesGet)
			r.Post("/{id}/restore", h.filesRestore)
			r.Delete("/{id}", h.filesDelete)
		})

		r.Get("/api/download/{id}", h.download)
		r.Get("/api/stream/file/{id}", h.stream)

		r.Route("/api/system", func(r chi.Router) {
			r.Get("/stats", h.systemStats)
			r.Post("/backup", h.systemBackup)
			r.Get("/metrics", metricsHandler(deps.Metrics))
		})
	})

	return r
}

// metricsHandler serves the registry metrics were actually registered
// against. With metrics disabled (m is nil) it reports 404 rather than
// silently exposing the global default registry's go_* runtime metrics.
func metricsHandler(m *metrics.Metrics) http.HandlerFunc {
	if m == nil || m.Registry == nil {
		return func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}
	}
	h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	return h.ServeHTTP
}

// instrument records request count/latency per route pattern.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			m.ObserveRequest(route, strconv.Itoa(ww.Status()), time.Since(start).Seconds())
		})
	}
}

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mndot/honeybee/telemetry"
	"github.com/rs/zerolog/log"
)

// RegisterRoutes registers all admin API routes using chi router
func RegisterRoutes(mux *http.ServeMux, handlers *AdminHandlers) {
	r := chi.NewRouter()
	r.Use(AuthMiddleware)

	r.Get("/resources", handlers.handleResources)
	r.Get("/resources/*", handlers.resourceByName)

	r.Route("/status", func(r chi.Router) {
		r.Get("/", handlers.handleStatus)
		r.Get("/files", handlers.handleFiles)
		// file paths contain slashes, e.g. /admin/status/api/img/g7.gif
		r.Get("/*", handlers.fileByPath)
	})

	// Mount chi router under /admin
	mux.Handle("/admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))
	mux.Handle("/admin/", http.StripPrefix("/admin", r))

	mux.HandleFunc("/healthz", handlers.handleHealth)
	if metrics := telemetry.GetMetricsHandler(); metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	log.Info().Msg("Admin endpoints enabled at /admin/*")
}

func (h *AdminHandlers) fileByPath(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		writeErrorResponse(w, http.StatusBadRequest, "file path is required")
		return
	}
	h.handleFile(w, r, path)
}

func (h *AdminHandlers) resourceByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" {
		writeErrorResponse(w, http.StatusBadRequest, "resource name is required")
		return
	}
	h.handleResource(w, r, name)
}

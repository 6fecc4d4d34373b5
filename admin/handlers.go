package admin

import (
	"encoding/json"
	"net/http"

	"github.com/mndot/honeybee/resource"
	"github.com/mndot/honeybee/status"
	"github.com/rs/zerolog/log"
)

// Readiness reports whether the initial fetch has completed
type Readiness interface {
	Ready() bool
}

// QueueStats exposes the mirror queue depth
type QueueStats interface {
	Len() int
}

// AdminHandlers serves pipeline status
type AdminHandlers struct {
	registry *resource.Registry
	tracker  *status.Tracker
	ready    Readiness
	queue    QueueStats
}

// NewAdminHandlers creates a new AdminHandlers instance
func NewAdminHandlers(registry *resource.Registry, tracker *status.Tracker, ready Readiness, queue QueueStats) *AdminHandlers {
	return &AdminHandlers{
		registry: registry,
		tracker:  tracker,
		ready:    ready,
		queue:    queue,
	}
}

type resourceInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Channels []string `json:"channels,omitempty"`
}

// handleResources lists the catalog in fetch order
func (h *AdminHandlers) handleResources(w http.ResponseWriter, r *http.Request) {
	resources := h.registry.Resources()
	out := make([]resourceInfo, 0, len(resources))
	for _, res := range resources {
		out = append(out, resourceInfo{
			Name:     res.Name(),
			Kind:     res.Kind().String(),
			Channels: res.Rule().Channels(),
		})
	}
	writeJSONResponse(w, out)
}

// handleStatus returns the fetch status of every resource
func (h *AdminHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, map[string]interface{}{
		"ready":          h.ready.Ready(),
		"mirror_pending": h.queue.Len(),
		"resources":      h.tracker.Resources(),
	})
}

// handleFiles returns the publish and mirror status of every file
func (h *AdminHandlers) handleFiles(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, h.tracker.Files())
}

// handleFile returns the status of one published file
func (h *AdminHandlers) handleFile(w http.ResponseWriter, r *http.Request, path string) {
	f, ok := h.tracker.File(path)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, "file not published: "+path)
		return
	}
	writeJSONResponse(w, f)
}

// handleResource returns the status of one resource
func (h *AdminHandlers) handleResource(w http.ResponseWriter, r *http.Request, name string) {
	if _, ok := h.registry.Lookup(name); !ok {
		writeErrorResponse(w, http.StatusNotFound, "unknown resource: "+name)
		return
	}
	st, ok := h.tracker.Resource(name)
	if !ok {
		st = status.Resource{Name: name}
	}
	writeJSONResponse(w, st)
}

// handleHealth is 200 once the initial fetch is complete, 503 before
func (h *AdminHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Ready() {
		writeErrorResponse(w, http.StatusServiceUnavailable, "initial fetch in progress")
		return
	}
	writeJSONResponse(w, map[string]string{"status": "ok"})
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": data}); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"error": message}); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

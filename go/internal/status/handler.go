package status

import (
	"encoding/json"
	"net/http"

	"github.com/mcdev12/cascade/go/internal/engine"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Source is what the reporter needs from the engine: a point-in-time
// snapshot safe to read between mutations.
type Source interface {
	Status() engine.Status
	SyncErrors() []engine.SyncError
}

// Handler exposes the pull-based session status for the UI indicator.
type Handler struct {
	source Source
}

func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// HandleStatus handles GET /api/session/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.source.Status()); err != nil {
		log.Error().Err(err).Msg("failed to encode status response")
	}
}

// HandleSyncErrors handles GET /api/session/errors.
func (h *Handler) HandleSyncErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	errs := h.source.SyncErrors()
	if errs == nil {
		errs = []engine.SyncError{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(errs); err != nil {
		log.Error().Err(err).Msg("failed to encode sync errors response")
	}
}

// RegisterRoutes registers the status endpoints on a mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/session/status", h.HandleStatus)
	mux.HandleFunc("/api/session/errors", h.HandleSyncErrors)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

// NewServer builds the CORS-wrapped status server.
func NewServer(addr string, source Source) *http.Server {
	mux := http.NewServeMux()
	NewHandler(source).RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:    addr,
		Handler: c.Handler(mux),
	}
}

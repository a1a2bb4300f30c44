package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/taskping/taskping/internal/handshake"
)

type AdminHandler struct {
	version  string
	started  time.Time
	offers   *handshake.Manager
	shutdown func()
	logger   *log.Logger
}

func NewAdminHandler(version string, offers *handshake.Manager, shutdown func(), logger *log.Logger) *AdminHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &AdminHandler{
		version:  version,
		started:  time.Now(),
		offers:   offers,
		shutdown: shutdown,
		logger:   logger,
	}
}

// Health is the liveness probe.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Status reports process-level details for operators.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     h.version,
		"started":     humanize.Time(h.started),
		"open_offers": h.offers.OpenCount(),
	})
}

// Shutdown asks the process to stop. The response goes out before the
// stop fires so the caller gets an acknowledgement.
func (h *AdminHandler) Shutdown(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "shutting down"})
	h.logger.Printf("api: shutdown requested from %s", r.RemoteAddr)
	if h.shutdown != nil {
		go h.shutdown()
	}
}

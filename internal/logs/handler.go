package logs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/view"
)

// Handler serves the read-only activity log.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	responder *view.Responder
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder) *Handler {
	return &Handler{logger: logger, service: service, responder: responder}
}

// MountRoutes registers log routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		if h.responder.Abort(w, r, err) {
			return
		}
		h.logger.Warn("list logs", slog.Any("error", err))
		h.responder.Flash(r, view.FlashError, backend.Message(err, "Failed to fetch logs"))
	}
	h.responder.Render(w, r, http.StatusOK, "pages/logs.html", "Logs", PageView{Entries: entries})
}

package insights

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-wms/meridian/internal/platform/httpx"
)

// Handler exposes dashboard metric endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.snapshot)
	r.Post("/refresh", h.refresh)
	r.Delete("/cache", h.reset)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("insights handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.Error("insights handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		h.logger.Error("insights handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.NoContent(w)
}

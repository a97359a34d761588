package inventory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-wms/meridian/internal/platform/httpx"
)

// Handler exposes inventory REST endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler creates a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Post("/{id}/adjust", h.adjust)
	r.Post("/{id}/serials", h.addSerials)
	r.Post("/{id}/serials/remove", h.removeSerials)
	r.Get("/{id}/movements", h.movements)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateSKU):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrSerialNotFound),
		errors.Is(err, ErrSerialized),
		errors.Is(err, ErrNotSerialized):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("inventory handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Search:   q.Get("search"),
		LowStock: q.Get("low_stock") == "true",
		Aged:     q.Get("aged") == "true",
	}
	if s := q.Get("serialized"); s != "" {
		serialized := s == "true"
		filter.Serialized = &serialized
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Items: items, Total: total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	item, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item := Item{
		SKU:           req.SKU,
		Name:          req.Name,
		Quantity:      req.Quantity,
		SerialNumbers: req.SerialNumbers,
		IsSerialized:  req.IsSerialized,
		ReorderPoint:  req.ReorderPoint,
		SafetyStock:   req.SafetyStock,
	}
	if req.EntryDate != nil {
		item.EntryDate = *req.EntryDate
	}
	created, err := h.service.Create(r.Context(), item)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	var req UpdateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updates := make(map[string]any)
	if req.SKU != nil {
		updates["sku"] = *req.SKU
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ReorderPoint != nil {
		updates["reorder_point"] = *req.ReorderPoint
	}
	if req.SafetyStock != nil {
		updates["safety_stock"] = *req.SafetyStock
	}
	if req.EntryDate != nil {
		updates["entry_date"] = *req.EntryDate
	}
	item, err := h.service.Update(r.Context(), id, updates)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	var req AdjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.Adjust(r.Context(), id, req.Delta, req.Reason, req.ActorID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) addSerials(w http.ResponseWriter, r *http.Request) {
	h.serialOp(w, r, h.service.AddSerials)
}

func (h *Handler) removeSerials(w http.ResponseWriter, r *http.Request) {
	h.serialOp(w, r, h.service.RemoveSerials)
}

func (h *Handler) serialOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, itemID int64, serials []string, reason string, actorID int64) (*Item, error)) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	var req SerialsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := op(r.Context(), id, req.Serials, req.Reason, req.ActorID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.Movements(r.Context(), id, limit)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

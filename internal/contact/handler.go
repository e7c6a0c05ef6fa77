package contact

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/auth"
)

// Handler exposes HTTP endpoints for contact CRUD.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.svc.AddOne(r.Context(), auth.OwnerID(r.Context()), in)
	if err != nil {
		h.fail(w, "add contact", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var ins []Input
	if !h.decode(w, r, &ins) {
		return
	}
	out, err := h.svc.AddMany(r.Context(), auth.OwnerID(r.Context()), ins)
	if err != nil {
		h.fail(w, "add contacts", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.svc.List(r.Context(), auth.OwnerID(r.Context()), ListQuery{
		Name:      q.Get("name"),
		Email:     q.Get("email"),
		Timezone:  q.Get("timezone"),
		SortField: q.Get("sortField"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		h.fail(w, "list contacts", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.svc.UpdateOne(r.Context(), auth.OwnerID(r.Context()), r.PathValue("id"), in); err != nil {
		h.fail(w, "update contact", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "contact updated"})
}

func (h *Handler) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	var items []UpdateItem
	if !h.decode(w, r, &items) {
		return
	}
	n, err := h.svc.UpdateMany(r.Context(), auth.OwnerID(r.Context()), items)
	if err != nil {
		h.fail(w, "update contacts", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), auth.OwnerID(r.Context()), r.PathValue("id")); err != nil {
		h.fail(w, "delete contact", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "contact deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid contact payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "item": verr.Item, "reasons": verr.Reasons})
	case errors.Is(err, ErrConflict):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "contact not found"})
	default:
		h.logger.Errorw(op+" failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to " + op})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package pets

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{petID}", h.Get)
	r.Patch("/{petID}", h.Update)
	r.Delete("/{petID}", h.Delete)
	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	p, err := h.svc.Create(r.Context(), actor, in)
	if err != nil {
		h.fail(w, "create pet", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	out, err := h.svc.List(r.Context(), actor, r.URL.Query().Get("owner_id"))
	if err != nil {
		h.fail(w, "list pets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pets": out})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	p, err := h.svc.Get(r.Context(), actor, chi.URLParam(r, "petID"))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	id := chi.URLParam(r, "petID")
	p, err := h.svc.Update(r.Context(), actor, id, in)
	if err != nil {
		h.fail(w, "update pet", err, "pet_id", id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	id := chi.URLParam(r, "petID")
	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, "delete pet", err, "pet_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error, kv ...any) {
	args := append([]any{"op", op, "error", err}, kv...)
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error("pet request failed", args...)
	} else {
		h.logger.Info("pet request rejected", args...)
	}
	apperr.WriteJSON(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package prescriptions

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
	r.Patch("/{prescriptionID}/status", h.UpdateStatus)
	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	p, err := h.svc.Create(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "create prescription", err, "pet_id", req.PetID)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// List handles GET /prescriptions?pet_id=&status=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	q := r.URL.Query()
	var out []Prescription
	if petID := q.Get("pet_id"); petID != "" {
		out, err = h.svc.ListForPet(r.Context(), actor, petID)
	} else {
		out, err = h.svc.List(r.Context(), actor, Status(q.Get("status")))
	}
	if err != nil {
		h.fail(w, "list prescriptions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prescriptions": out})
}

type statusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	id := chi.URLParam(r, "prescriptionID")
	p, err := h.svc.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		h.fail(w, "update prescription status", err, "prescription_id", id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error, kv ...any) {
	args := append([]any{"op", op, "error", err}, kv...)
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error("prescription request failed", args...)
	} else {
		h.logger.Info("prescription request rejected", args...)
	}
	apperr.WriteJSON(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

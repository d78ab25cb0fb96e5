package profiles

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// Handler serves profile, vet directory and approval endpoints.
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

// Register handles POST /profiles.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	p, err := h.svc.Register(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "register profile", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	p, err := h.svc.GetProfile(r.Context(), actor, actor.UserID)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	p, err := h.svc.UpdateMe(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListVets handles the public GET /vets directory.
func (h *Handler) ListVets(w http.ResponseWriter, r *http.Request) {
	vets, err := h.svc.ListApprovedVets(r.Context(), r.URL.Query().Get("specialization"))
	if err != nil {
		h.fail(w, "list vets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vets": vets})
}

func (h *Handler) GetVet(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	v, err := h.svc.GetVet(r.Context(), actor, chi.URLParam(r, "vetID"))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) UpdateMyVet(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var req UpdateVetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	v, err := h.svc.UpdateMyVet(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "update vet profile", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// AdminListVets handles GET /admin/vets?status=pending.
func (h *Handler) AdminListVets(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	q := r.URL.Query()
	vets, err := h.svc.ListVets(r.Context(), actor, VetFilter{
		Status:         ApprovalStatus(q.Get("status")),
		Specialization: q.Get("specialization"),
	})
	if err != nil {
		h.fail(w, "admin list vets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vets": vets})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, ApprovalApproved)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, ApprovalRejected)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, status ApprovalStatus) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	id := chi.URLParam(r, "vetID")
	var v *VetProfile
	if status == ApprovalApproved {
		v, err = h.svc.Approve(r.Context(), actor, id)
	} else {
		v, err = h.svc.Reject(r.Context(), actor, id)
	}
	if err != nil {
		h.fail(w, "vet approval", err, "vet_id", id, "status", status)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error, kv ...any) {
	args := append([]any{"op", op, "error", err}, kv...)
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error("profile request failed", args...)
	} else {
		h.logger.Info("profile request rejected", args...)
	}
	apperr.WriteJSON(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package availability

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// Handler serves slot lookups and rule management.
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

// SlotsResponse is returned by GET /vets/{vetID}/availability.
type SlotsResponse struct {
	VetID string   `json:"vet_id"`
	Date  Date     `json:"date"`
	Slots []Window `json:"slots"`
}

// GetSlots handles GET /vets/{vetID}/availability?date=YYYY-MM-DD
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	vetID := chi.URLParam(r, "vetID")
	date, err := ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		apperr.WriteJSON(w, apperr.Validation("%v", err))
		return
	}
	slots, err := h.svc.Slots(r.Context(), vetID, date)
	if err != nil {
		h.logger.Error("failed to compute slots", "vet_id", vetID, "date", date.String(), "error", err)
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SlotsResponse{VetID: vetID, Date: date, Slots: slots})
}

// GetRules handles GET /vets/{vetID}/availability/rules
func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.Rules(r.Context(), chi.URLParam(r, "vetID"))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	if rules == nil {
		rules = []Rule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// ReplaceRulesRequest is the PUT body for a vet's weekly schedule.
type ReplaceRulesRequest struct {
	Rules []Rule `json:"rules"`
}

// ReplaceMyRules handles PUT /vets/me/availability for the calling vet.
func (h *Handler) ReplaceMyRules(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || (p.Role != auth.RoleVet && !p.IsAdmin()) {
		apperr.WriteJSON(w, apperr.Forbidden("only vets can manage availability"))
		return
	}
	var req ReplaceRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	vetID := p.UserID
	if p.IsAdmin() {
		if override := r.URL.Query().Get("vet_id"); override != "" {
			vetID = override
		}
	}
	rules, err := h.svc.ReplaceRules(r.Context(), vetID, req.Rules)
	if err != nil {
		h.logger.Error("failed to replace rules", "vet_id", vetID, "error", err)
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package payments

import (
	"encoding/json"
	"net/http"

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

// Record handles POST /payments.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	tx, err := h.svc.RecordPayment(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "record payment", err, "booking_id", req.BookingID)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// Stats handles GET /admin/transactions/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	stats, err := h.svc.Stats(r.Context(), actor)
	if err != nil {
		h.fail(w, "transaction stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// List handles GET /admin/transactions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	txs, err := h.svc.ListTransactions(r.Context(), actor)
	if err != nil {
		h.fail(w, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// Earnings handles GET /vets/me/earnings.
func (h *Handler) Earnings(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	out, err := h.svc.Earnings(r.Context(), actor)
	if err != nil {
		h.fail(w, "vet earnings", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error, kv ...any) {
	args := append([]any{"op", op, "error", err}, kv...)
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error("payment request failed", args...)
	} else {
		h.logger.Info("payment request rejected", args...)
	}
	apperr.WriteJSON(w, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

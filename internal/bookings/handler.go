package bookings

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/internal/availability"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// Handler exposes the booking lifecycle over HTTP.
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

// Routes mounts the caller-facing booking endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Route("/{bookingID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/confirm", h.Confirm)
		r.Post("/complete", h.Complete)
		r.Post("/cancel", h.Cancel)
		r.Post("/reschedule", h.Reschedule)
	})
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
	b, err := h.svc.Create(r.Context(), actor, req)
	if err != nil {
		h.fail(w, "create booking", err, "vet_id", req.VetID)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	f, err := filterFromQuery(r)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	out, err := h.svc.List(r.Context(), actor, f)
	if err != nil {
		h.fail(w, "list bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": out})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	b, err := h.svc.Get(r.Context(), actor, chi.URLParam(r, "bookingID"))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	id := chi.URLParam(r, "bookingID")
	b, err := h.svc.Confirm(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "confirm booking", err, "booking_id", id)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	id := chi.URLParam(r, "bookingID")
	b, err := h.svc.Complete(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "complete booking", err, "booking_id", id)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var opts CancelOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	id := chi.URLParam(r, "bookingID")
	res, err := h.svc.Cancel(r.Context(), actor, id, opts)
	if err != nil {
		h.fail(w, "cancel booking", err, "booking_id", id)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	id := chi.URLParam(r, "bookingID")
	b, err := h.svc.Reschedule(r.Context(), actor, id, req)
	if err != nil {
		h.fail(w, "reschedule booking", err, "booking_id", id)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type adminStatusRequest struct {
	Status Status `json:"status"`
}

// AdminSetStatus handles PATCH /admin/bookings/{bookingID}/status.
func (h *Handler) AdminSetStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	var req adminStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.WriteJSON(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	id := chi.URLParam(r, "bookingID")
	res, err := h.svc.AdminSetStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		h.fail(w, "admin status change", err, "booking_id", id)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// fail logs unexpected errors loudly and expected ones at info.
func (h *Handler) fail(w http.ResponseWriter, op string, err error, kv ...any) {
	args := append([]any{"op", op, "error", err}, kv...)
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error("booking request failed", args...)
	} else {
		h.logger.Info("booking request rejected", args...)
	}
	apperr.WriteJSON(w, err)
}

func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		PetOwnerID: q.Get("pet_owner_id"),
		VetID:      q.Get("vet_id"),
		PetID:      q.Get("pet_id"),
		Status:     Status(q.Get("status")),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, apperr.Validation("unknown status %q", f.Status)
	}
	for name, dst := range map[string]*availability.Date{"from": &f.From, "to": &f.To} {
		if raw := q.Get(name); raw != "" {
			d, err := availability.ParseDate(raw)
			if err != nil {
				return f, apperr.Validation("%s: %v", name, err)
			}
			*dst = d
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, apperr.Validation("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

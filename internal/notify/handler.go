package notify

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// FunctionsHandler serves the /functions/* email endpoints.
type FunctionsHandler struct {
	service *Service
	logger  *logging.Logger
}

func NewFunctionsHandler(service *Service, logger *logging.Logger) *FunctionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FunctionsHandler{service: service, logger: logger}
}

type functionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BookingConfirmation handles POST /functions/booking-confirmation.
func (h *FunctionsHandler) BookingConfirmation(w http.ResponseWriter, r *http.Request) {
	var req BookingConfirmation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "booking_confirmation", apperr.Validation("invalid request body: %v", err))
		return
	}
	if err := h.service.SendBookingConfirmation(r.Context(), req); err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.External("email", err)
		}
		h.fail(w, "booking_confirmation", err)
		return
	}
	writeJSON(w, http.StatusOK, functionResponse{Success: true, Message: "Booking confirmation emails sent"})
}

// Contact handles POST /functions/contact.
func (h *FunctionsHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "contact", apperr.Validation("invalid request body: %v", err))
		return
	}
	if err := h.service.SubmitContact(r.Context(), req, clientIP(r)); err != nil {
		h.fail(w, "contact", err)
		return
	}
	writeJSON(w, http.StatusOK, functionResponse{Success: true, Message: "Thanks for reaching out. We will get back to you soon."})
}

func (h *FunctionsHandler) fail(w http.ResponseWriter, op string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("function failed", "op", op, "error", err)
	} else {
		h.logger.Info("function rejected", "op", op, "error", err)
	}
	msg := "internal server error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	writeJSON(w, status, functionResponse{Success: false, Error: msg})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package dashboard

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// Handler serves GET /admin/dashboard.
type Handler struct {
	loader Loader
	opts   Options
	now    func() time.Time
	logger *logging.Logger
}

func NewHandler(loader Loader, opts Options, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{loader: loader, opts: opts, now: func() time.Time { return time.Now().UTC() }, logger: logger}
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.Require(r.Context())
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	if !actor.IsAdmin() {
		apperr.WriteJSON(w, apperr.Forbidden("admin role required"))
		return
	}
	var f LoadFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("appointment_status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.AppointmentStatuses = append(f.AppointmentStatuses, part)
			}
		}
	}
	snap, err := h.loader.Load(r.Context(), f)
	if err != nil {
		h.logger.Error("dashboard load failed", "error", err)
		apperr.WriteJSON(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Aggregate(snap, h.now(), h.opts))
}

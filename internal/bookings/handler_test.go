package bookings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetcare-platform/internal/auth"
)

func serve(t *testing.T, h *Handler, p *auth.Principal, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Mount("/bookings", h.Routes())
	r.Patch("/admin/bookings/{bookingID}/status", h.AdminSetStatus)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateConfirmCancelFlow(t *testing.T) {
	h := newHarness(t)
	handler := NewHandler(h.svc, nil)

	rec := serve(t, handler, &owner, http.MethodPost, "/bookings/",
		`{"vet_id":"vet-1","pet_id":"pet-1","booking_date":"2025-03-03","start_time":"09:00","end_time":"09:30","consultation_type":"in_person"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, "09:00", created.StartTime.String())

	rec = serve(t, handler, &owner, http.MethodPost, "/bookings/",
		`{"vet_id":"vet-1","pet_id":"pet-1","booking_date":"2025-03-03","start_time":"09:00","end_time":"09:30","consultation_type":"in_person"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"conflict"`)

	rec = serve(t, handler, &vet, http.MethodPost, "/bookings/"+created.ID+"/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)

	rec = serve(t, handler, &owner, http.MethodPost, "/bookings/"+created.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res CancelResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, StatusCancelled, res.Booking.Status)
	assert.Equal(t, 100, res.RefundPercent)

	rec = serve(t, handler, &owner, http.MethodPost, "/bookings/"+created.ID+"/cancel", `{"reason":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_transition")
}

func TestHandler_RequiresAuth(t *testing.T) {
	h := newHarness(t)
	rec := serve(t, NewHandler(h.svc, nil), nil, http.MethodGet, "/bookings/", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_ListFilterValidation(t *testing.T) {
	h := newHarness(t)
	handler := NewHandler(h.svc, nil)
	h.book(t, "09:00", "09:30")

	rec := serve(t, handler, &admin, http.MethodGet, "/bookings/?status=archived", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, handler, &admin, http.MethodGet, "/bookings/?from=2025-03-01&to=2025-03-31&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Bookings []Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Bookings, 1)
}

func TestHandler_AdminSetStatus(t *testing.T) {
	h := newHarness(t)
	handler := NewHandler(h.svc, nil)
	b := h.book(t, "09:00", "09:30")

	rec := serve(t, handler, &owner, http.MethodPatch, "/admin/bookings/"+b.ID+"/status", `{"status":"completed"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, handler, &admin, http.MethodPatch, "/admin/bookings/"+b.ID+"/status", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)
}

package payments

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/vetcare-platform/internal/auth"
)

func serve(h *Handler, p *auth.Principal, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/payments", h.Record)
	r.Get("/admin/transactions", h.List)
	r.Get("/admin/transactions/stats", h.Stats)
	r.Get("/vets/me/earnings", h.Earnings)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RecordThenReport(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc, nil)

	rec := serve(h, &owner, http.MethodPost, "/payments", `{"booking_id":"b1","amount":500,"provider":"razorpay","provider_payment_id":"pay_1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(h, &owner, http.MethodPost, "/payments", `{"booking_id":"b1","amount":-5,"provider":"razorpay"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, &admin, http.MethodGet, "/admin/transactions/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"platform_fees":121`)

	rec = serve(h, &vet, http.MethodGet, "/admin/transactions", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, &vet, http.MethodGet, "/vets/me/earnings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"vet_earning":379`)
}

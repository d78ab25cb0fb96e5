package profiles

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
	r.Post("/profiles", h.Register)
	r.Get("/profiles/me", h.GetMe)
	r.Get("/vets", h.ListVets)
	r.Get("/vets/{vetID}", h.GetVet)
	r.Get("/admin/vets", h.AdminListVets)
	r.Post("/admin/vets/{vetID}/approve", h.Approve)
	r.Post("/admin/vets/{vetID}/reject", h.Reject)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ApprovalFlow(t *testing.T) {
	h := NewHandler(newTestService(t), nil)

	rec := serve(h, nil, http.MethodGet, "/vets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"vets":[]}`, rec.Body.String())

	rec = serve(h, nil, http.MethodGet, "/vets/vet-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, &vet, http.MethodPost, "/admin/vets/vet-1/approve", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, &admin, http.MethodPost, "/admin/vets/vet-1/approve", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"approval_status":"approved"`)

	rec = serve(h, &admin, http.MethodPost, "/admin/vets/vet-1/reject", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_transition")

	rec = serve(h, nil, http.MethodGet, "/vets", "")
	assert.Contains(t, rec.Body.String(), `"id":"vet-1"`)
}

func TestHandler_RegisterAndMe(t *testing.T) {
	h := NewHandler(NewService(NewInMemoryRepository(), nil), nil)

	rec := serve(h, nil, http.MethodPost, "/profiles", `{"full_name":"X","email":"x@y.io"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, &owner, http.MethodPost, "/profiles", `{"full_name":"X",`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, &owner, http.MethodPost, "/profiles", `{"full_name":"X","email":"x@y.io"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(h, &owner, http.MethodGet, "/profiles/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_type":"pet_owner"`)

	rec = serve(h, &owner, http.MethodGet, "/admin/vets", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

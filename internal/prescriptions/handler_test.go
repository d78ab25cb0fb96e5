package prescriptions

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

func serve(h *Handler, p *auth.Principal, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Mount("/prescriptions", h.Routes())
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_PrescribeAndClose(t *testing.T) {
	h := NewHandler(newTestService(), nil)

	rec := serve(h, &vet, http.MethodPost, "/prescriptions/",
		`{"pet_id":"pet-1","medication_name":"Amoxicillin","dosage":"250mg","frequency":"bid"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p Prescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = serve(h, &owner, http.MethodGet, "/prescriptions/?pet_id=pet-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), p.ID)

	rec = serve(h, &vet, http.MethodPatch, "/prescriptions/"+p.ID+"/status", `{"status":"discontinued"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, &vet, http.MethodPatch, "/prescriptions/"+p.ID+"/status", `{"status":"completed"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

package catalog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/georgemunganga/shopu-backend/internal/modules/user"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asRole stands in for the auth middleware, taking the caller's role from a
// test header.
func asRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := user.ParseRole(r.Header.Get("X-Test-Role"))
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		u := &user.User{Email: "someone@univalle.edu.co", Role: role}
		next.ServeHTTP(w, r.WithContext(user.NewContext(r.Context(), u)))
	})
}

func serve(t *testing.T, h http.Handler, role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Test-Role", role)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCatalogHandler(t *testing.T) {
	svc, _ := newTestService(t)
	r := chi.NewRouter()
	NewHandler(svc, asRole).RegisterRoutes(r)

	form := map[string]any{"name": "Café", "price": "$2.000", "quantity": 3}
	assert.Equal(t, http.StatusForbidden, serve(t, r, "customer", http.MethodPost, "/api/v1/catalog/products", form).Code)

	rec := serve(t, r, "worker", http.MethodPost, "/api/v1/catalog/products", form)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 2000.0, created.Price)
	assert.True(t, created.InStock)

	rec = serve(t, r, "customer", http.MethodGet, "/api/v1/catalog/products?search=caf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = serve(t, r, "admin", http.MethodPut, "/api/v1/catalog/products/"+created.ID,
		map[string]any{"name": "Café", "price": "abc", "quantity": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"price"`)

	assert.Equal(t, http.StatusOK, serve(t, r, "admin", http.MethodDelete, "/api/v1/catalog/products/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, r, "customer", http.MethodGet, "/api/v1/catalog/products/"+created.ID, nil).Code)
}

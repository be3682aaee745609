package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callerFromHeader stands in for the auth middleware.
func callerFromHeader(repo Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := r.Header.Get("X-Test-Email")
			if email == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			u, err := repo.GetUser(r.Context(), email)
			if err != nil {
				u = &User{Email: email, Role: RoleCustomer}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), u)))
		})
	}
}

func call(t *testing.T, h http.Handler, as, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if as != "" {
		req.Header.Set("X-Test-Email", as)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUserHandler(t *testing.T) {
	svc, repo := newTestService(t)
	require.NoError(t, repo.SaveUser(context.Background(), &User{Email: "admin@univalle.edu.co", Role: RoleAdmin}))
	r := chi.NewRouter()
	NewHandler(svc, callerFromHeader(repo)).RegisterRoutes(r)

	const ana = "ana@correounivalle.edu.co"
	rec := call(t, r, ana, http.MethodGet, "/api/v1/users/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"customer"`)

	rec = call(t, r, ana, http.MethodPut, "/api/v1/users/me", map[string]string{"first_name": "Ana", "last_name": "Ruiz"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"first_name":"Ana"`)

	assert.Equal(t, http.StatusUnauthorized, call(t, r, "", http.MethodGet, "/api/v1/users/me", nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, r, ana, http.MethodGet, "/api/v1/workers", nil).Code)

	const admin = "admin@univalle.edu.co"
	assert.Equal(t, http.StatusCreated, call(t, r, admin, http.MethodPost, "/api/v1/workers", map[string]string{"email": ana}).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, r, admin, http.MethodPost, "/api/v1/workers", map[string]string{"email": "x@gmail.com"}).Code)
	assert.Equal(t, http.StatusConflict, call(t, r, admin, http.MethodPost, "/api/v1/workers", map[string]string{"email": admin}).Code)

	rec = call(t, r, admin, http.MethodGet, "/api/v1/workers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var workers []User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &workers))
	require.Len(t, workers, 1)
	assert.Equal(t, "Ana", workers[0].FirstName)

	assert.Equal(t, http.StatusOK, call(t, r, admin, http.MethodDelete, "/api/v1/workers/"+ana, nil).Code)
	assert.Equal(t, http.StatusConflict, call(t, r, admin, http.MethodDelete, "/api/v1/workers/"+ana, nil).Code)
}

func TestRequireRoleWithoutUser(t *testing.T) {
	h := RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

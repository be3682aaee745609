package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/georgemunganga/shopu-backend/internal/modules/user"
	"go.uber.org/zap"
)

type Middleware struct {
	service Service
	log     *zap.Logger
}

func NewMiddleware(service Service, log *zap.Logger) *Middleware {
	return &Middleware{service: service, log: log}
}

// Authenticate requires a valid bearer token and stores the caller in the
// request context. Browsers cannot set headers on websocket upgrades, so an
// access_token query parameter is accepted too.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respond(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		u, err := m.service.Authenticate(r.Context(), token)
		if errors.Is(err, ErrInvalidToken) {
			respond(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			m.log.Error("authenticate request", zap.Error(err))
			respond(w, http.StatusInternalServerError, "authentication unavailable")
			return
		}
		next.ServeHTTP(w, r.WithContext(user.NewContext(r.Context(), u)))
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func respond(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

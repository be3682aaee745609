package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
	authn   func(http.Handler) http.Handler
}

// NewHandler wires the user endpoints behind authn, the middleware that
// stores the caller with NewContext.
func NewHandler(service Service, authn func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, authn: authn}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/api/v1/users", func(r chi.Router) {
		r.Use(h.authn)
		r.Get("/me", h.getMe)  // GET /api/v1/users/me
		r.Put("/me", h.saveMe) // PUT /api/v1/users/me
	})
	router.Route("/api/v1/workers", func(r chi.Router) {
		r.Use(h.authn, RequireRole(RoleAdmin))
		r.Get("/", h.listWorkers)            // GET    /api/v1/workers
		r.Post("/", h.addWorker)             // POST   /api/v1/workers
		r.Delete("/{email}", h.removeWorker) // DELETE /api/v1/workers/{email}
	})
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	caller, _ := FromContext(r.Context())
	u, err := h.service.GetUser(r.Context(), caller.Email)
	if errors.Is(err, ErrUserNotFound) {
		// Signed in but never saved a profile.
		respond(w, http.StatusOK, caller)
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, u)
}

func (h *Handler) saveMe(w http.ResponseWriter, r *http.Request) {
	type request struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	caller, _ := FromContext(r.Context())
	u, err := h.service.SaveProfile(r.Context(), caller.Email, req.FirstName, req.LastName)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, u)
}

func (h *Handler) listWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.service.ListWorkers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, workers)
}

func (h *Handler) addWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	u, err := h.service.AddWorker(r.Context(), req.Email)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, u)
}

func (h *Handler) removeWorker(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveWorker(r.Context(), chi.URLParam(r, "email")); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "worker removed"})
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUserNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrEmailRequired), errors.Is(err, ErrNotInstitutional):
		code = http.StatusBadRequest
	case errors.Is(err, ErrNotWorker), errors.Is(err, ErrAdminRoleIsImmutable):
		code = http.StatusConflict
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

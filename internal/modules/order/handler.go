package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/georgemunganga/shopu-backend/internal/modules/cart"
	"github.com/georgemunganga/shopu-backend/internal/modules/user"
	"github.com/go-chi/chi/v5"
)

// Handler exposes order HTTP endpoints.
type Handler struct {
	service Service
	hub     *Hub
	authn   func(http.Handler) http.Handler
}

// NewHandler wires the order endpoints behind authn. hub may be nil, in
// which case the stream endpoint is not mounted.
func NewHandler(service Service, hub *Hub, authn func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, hub: hub, authn: authn}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(h.authn)
		r.Post("/", h.placeOrder)  // POST /api/v1/orders
		r.Get("/mine", h.listMine) // GET  /api/v1/orders/mine?search=
		r.Get("/{id}", h.getOrder) // GET  /api/v1/orders/{id}

		r.Group(func(r chi.Router) {
			r.Use(user.RequireStaff)
			r.Get("/", h.listOrders)                // GET   /api/v1/orders?status=&search=
			r.Patch("/{id}/status", h.updateStatus) // PATCH /api/v1/orders/{id}/status
			r.Post("/status", h.saveStatusChanges)  // POST  /api/v1/orders/status
			if h.hub != nil {
				r.Get("/stream", h.hub.ServeHTTP) // GET /api/v1/orders/stream (websocket)
			}
		})
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := user.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	c, err := cartFromLines(req.Items)
	if err != nil {
		respondError(w, err)
		return
	}
	o, err := h.service.PlaceOrder(r.Context(), CheckoutRequest{
		Customer: caller.Email,
		Cart:     c,
		Payment:  req.PaymentInfo,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, NewOrderView(o))
}

// cartFromLines builds a cart from submitted lines, summing repeated
// products into one line.
func cartFromLines(lines []cart.Item) (*cart.Cart, error) {
	merged := make([]cart.Item, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l.ProductID) == "" || l.Quantity <= 0 {
			return nil, ErrInvalidLineItem
		}
		if i, seen := index[l.ProductID]; seen {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	c := cart.New()
	for _, l := range merged {
		c.Add(l)
	}
	return c, nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := user.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if !caller.Role.IsStaff() && o.Customer != caller.Email {
		// Do not reveal that someone else's order exists.
		respondError(w, ErrOrderNotFound)
		return
	}
	respond(w, http.StatusOK, NewOrderView(o))
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := user.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	orders, err := h.service.ListOrders(r.Context(), Filter{
		Customer: caller.Email,
		Search:   r.URL.Query().Get("search"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewsOf(orders))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := Filter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			respondError(w, ErrUnknownStatus)
			return
		}
		f.Status = st
	}
	orders, err := h.service.ListOrders(r.Context(), f)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewsOf(orders))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	update, err := h.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, newStatusUpdateView(update))
}

func (h *Handler) saveStatusChanges(w http.ResponseWriter, r *http.Request) {
	var req SaveChangesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res, err := h.service.SaveStatusChanges(r.Context(), req.Changes)
	if err != nil {
		respondError(w, err)
		return
	}

	type response struct {
		Updated []string                    `json:"updated"`
		Failed  map[string]string           `json:"failed,omitempty"`
		Updates map[string]StatusUpdateView `json:"updates"`
	}
	body := response{
		Updated: res.Updated,
		Updates: make(map[string]StatusUpdateView, len(res.Updates)),
	}
	for id, u := range res.Updates {
		body.Updates[id] = newStatusUpdateView(u)
	}
	code := http.StatusOK
	if res.Failures() > 0 {
		code = http.StatusMultiStatus
		body.Failed = make(map[string]string, len(res.Failed))
		for id, ferr := range res.Failed {
			body.Failed[id] = ferr.Error()
		}
	}
	respond(w, code, body)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrOrderNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock):
		code = http.StatusConflict
	case errors.Is(err, ErrUnknownStatus),
		errors.Is(err, ErrNoChanges),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidLineItem),
		errors.Is(err, ErrPayerNameRequired),
		errors.Is(err, ErrCustomerRequired):
		code = http.StatusBadRequest
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

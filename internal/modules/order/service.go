package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/georgemunganga/shopu-backend/internal/platform/metrics"
	"go.uber.org/zap"
)

const (
	DefaultStatusWriteTimeout = 10 * time.Second
	DefaultStockTxTimeout     = 15 * time.Second
	DefaultBatchConcurrency   = 4
)

// Service defines the order management business logic.
type Service interface {
	GetOrder(ctx context.Context, id string) (*Order, error)

	// ListOrders returns matching orders, newest first.
	ListOrders(ctx context.Context, f Filter) ([]*Order, error)

	// ObserveOrders calls fn with the full order list now and after every
	// change until the subscription is cancelled.
	ObserveOrders(fn func([]*Order)) (Subscription, error)

	// PlaceOrder turns a cart into a pending order and empties the cart.
	PlaceOrder(ctx context.Context, req CheckoutRequest) (*Order, error)

	// UpdateOrderStatus writes the new status and reconciles stock when the
	// order enters or leaves delivered. Only a failed status write is
	// returned as an error; stock problems are reported in the result.
	UpdateOrderStatus(ctx context.Context, orderID, newStatus string) (*StatusUpdate, error)

	// SaveStatusChanges applies a batch of edits, dropping those that match
	// the current status, and reports failures per order.
	SaveStatusChanges(ctx context.Context, changes map[string]string) (*BatchResult, error)
}

// Subscription is the handle returned by ObserveOrders.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() { s.once.Do(s.cancel) }

// Option configures the service.
type Option func(*service)

func WithLogger(log *zap.Logger) Option { return func(s *service) { s.log = log } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *service) { s.metrics = m } }

// WithEventBus publishes StockWarning values on TopicStockWarning.
func WithEventBus(bus EventBus.Bus) Option { return func(s *service) { s.bus = bus } }

func WithTimeouts(statusWrite, stockTx time.Duration) Option {
	return func(s *service) {
		if statusWrite > 0 {
			s.statusWriteTimeout = statusWrite
		}
		if stockTx > 0 {
			s.stockTxTimeout = stockTx
		}
	}
}

func WithBatchConcurrency(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithClock overrides the time source used to stamp new orders.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

type service struct {
	repo    Repository
	log     *zap.Logger
	metrics *metrics.Metrics
	bus     EventBus.Bus
	now     func() time.Time

	statusWriteTimeout time.Duration
	stockTxTimeout     time.Duration
	batchConcurrency   int

	// inFlight orders concurrent updates of the same order within this
	// process so each one sees the status the previous one wrote.
	inFlight orderLocks
}

// NewService creates a new order service.
func NewService(repo Repository, opts ...Option) Service {
	s := &service{
		repo:               repo,
		log:                zap.NewNop(),
		now:                time.Now,
		statusWriteTimeout: DefaultStatusWriteTimeout,
		stockTxTimeout:     DefaultStockTxTimeout,
		batchConcurrency:   DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *service) ListOrders(ctx context.Context, f Filter) ([]*Order, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return applyFilter(orders, f), nil
}

func (s *service) ObserveOrders(fn func([]*Order)) (Subscription, error) {
	cancel, err := s.repo.Watch(func(orders []*Order) {
		fn(applyFilter(orders, Filter{}))
	})
	if err != nil {
		return nil, fmt.Errorf("watch orders: %w", err)
	}
	return &subscription{cancel: cancel}, nil
}

func applyFilter(orders []*Order, f Filter) []*Order {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*Order, 0, len(orders))
	for _, o := range orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Customer != "" && !strings.EqualFold(o.Customer, f.Customer) {
			continue
		}
		if search != "" && !matchesSearch(o, search) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func matchesSearch(o *Order, needle string) bool {
	if strings.Contains(strings.ToLower(o.ID), needle) ||
		strings.Contains(strings.ToLower(o.Customer), needle) {
		return true
	}
	for _, it := range o.Items {
		if strings.Contains(strings.ToLower(it.Name), needle) {
			return true
		}
	}
	return false
}

func (s *service) PlaceOrder(ctx context.Context, req CheckoutRequest) (*Order, error) {
	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		return nil, ErrCustomerRequired
	}
	if req.Cart == nil || req.Cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	payment := PaymentInfo{
		Name:      strings.TrimSpace(req.Payment.Name),
		Phone:     strings.TrimSpace(req.Payment.Phone),
		Reference: strings.TrimSpace(req.Payment.Reference),
	}
	if payment.Name == "" {
		return nil, ErrPayerNameRequired
	}

	lines := req.Cart.Items()
	items := make([]LineItem, len(lines))
	for i, l := range lines {
		items[i] = LineItem{ProductID: l.ProductID, Name: l.Name, UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	o := &Order{
		Customer:    customer,
		Items:       items,
		Total:       req.Cart.Total().Round(2).InexactFloat64(),
		Status:      StatusPending,
		CreatedAt:   s.now().UnixMilli(),
		PaymentInfo: &payment,
	}

	// Stock is only checked here; it is deducted when the order is delivered.
	err := s.repo.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		for _, it := range items {
			raw, found, err := tx.ProductStock(ctx, it.ProductID)
			if err != nil {
				return err
			}
			available := 0
			if found {
				available = coerceInt(raw)
			}
			if available < it.Quantity {
				return &StockShortageError{ProductID: it.ProductID, Name: it.Name, Available: available, Requested: it.Quantity}
			}
		}
		id, err := tx.NextOrderID(ctx)
		if err != nil {
			return err
		}
		o.ID = id
		return tx.CreateOrder(ctx, o)
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return nil, err
		}
		return nil, fmt.Errorf("place order: %w", err)
	}

	req.Cart.Clear()
	s.log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("customer", o.Customer),
		zap.Int("items", len(o.Items)),
		zap.Float64("total", o.Total))
	return o, nil
}

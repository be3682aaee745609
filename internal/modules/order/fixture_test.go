package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/georgemunganga/shopu-backend/internal/platform/docstore"
	"github.com/georgemunganga/shopu-backend/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	t       *testing.T
	store   *docstore.Store
	repo    Repository
	svc     Service
	logs    *observer.ObservedLogs
	bus     EventBus.Bus
	metrics *metrics.Metrics

	mu       sync.Mutex
	warnings []StockWarning
}

// newFixture builds a service over a fresh memory store. wrap, when given,
// decorates the repository to inject failures.
func newFixture(t *testing.T, wrap func(Repository) Repository, opts ...Option) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{
		t:       t,
		store:   docstore.New(),
		logs:    logs,
		bus:     EventBus.New(),
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	f.repo = NewMemoryRepository(f.store)
	if wrap != nil {
		f.repo = wrap(f.repo)
	}
	require.NoError(t, f.bus.Subscribe(TopicStockWarning, func(w StockWarning) {
		f.mu.Lock()
		f.warnings = append(f.warnings, w)
		f.mu.Unlock()
	}))
	base := []Option{
		WithLogger(zap.New(core)),
		WithMetrics(f.metrics),
		WithEventBus(f.bus),
		WithClock(func() time.Time { return fixedNow }),
	}
	f.svc = NewService(f.repo, append(base, opts...)...)
	return f
}

func (f *fixture) product(id string, quantity any) {
	f.store.Set(productsCollection, id, docstore.Document{"name": "product " + id, "price": 1000, "quantity": quantity})
}

func (f *fixture) order(id, status string, items ...any) {
	raw := append([]any{}, items...)
	f.store.Set(ordersCollection, id, docstore.Document{
		"customer":  "ana@correounivalle.edu.co",
		"items":     raw,
		"total":     0,
		"status":    status,
		"createdAt": fixedNow.UnixMilli(),
	})
}

func item(productID string, quantity any) map[string]any {
	return map[string]any{"productId": productID, "name": "item " + productID, "unitPrice": 1000, "quantity": quantity}
}

func (f *fixture) stock(id string) any {
	f.t.Helper()
	doc, ok := f.store.Get(productsCollection, id)
	require.True(f.t, ok, "product %s missing", id)
	return doc["quantity"]
}

func (f *fixture) status(id string) string {
	f.t.Helper()
	doc, ok := f.store.Get(ordersCollection, id)
	require.True(f.t, ok, "order %s missing", id)
	return doc["status"].(string)
}

func (f *fixture) update(id, status string) *StatusUpdate {
	f.t.Helper()
	u, err := f.svc.UpdateOrderStatus(context.Background(), id, status)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) stockWarnings() []StockWarning {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StockWarning(nil), f.warnings...)
}

var errInjected = errors.New("injected failure")

// faultyRepo fails the operations it is told to.
type faultyRepo struct {
	Repository
	failUpdate      bool
	failTransaction bool
	// failStockFor makes SetProductStock fail for this product id.
	failStockFor string
}

func (r *faultyRepo) UpdateField(ctx context.Context, id, field string, value any) error {
	if r.failUpdate {
		return errInjected
	}
	return r.Repository.UpdateField(ctx, id, field, value)
}

func (r *faultyRepo) RunTransaction(ctx context.Context, fn func(context.Context, Tx) error) error {
	if r.failTransaction {
		return errInjected
	}
	return r.Repository.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return fn(ctx, &faultyTx{Tx: tx, failStockFor: r.failStockFor})
	})
}

type faultyTx struct {
	Tx
	failStockFor string
}

func (t *faultyTx) SetProductStock(ctx context.Context, productID string, quantity int) error {
	if productID == t.failStockFor {
		return errInjected
	}
	return t.Tx.SetProductStock(ctx, productID, quantity)
}

package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/georgemunganga/shopu-backend/internal/platform/docstore"
	"github.com/spf13/cast"
)

// Collections shared with the catalog module.
const (
	ordersCollection   = "orders"
	productsCollection = "products"
	countersCollection = "counters"
	orderCounterID     = "orders"
	// First order ids are 1001, 1002, ...
	orderCounterBase = 1000
)

type memoryRepo struct{ store *docstore.Store }

// NewMemoryRepository keeps orders in a document store shared with the
// catalog, so stock transactions see the same products.
func NewMemoryRepository(store *docstore.Store) Repository {
	return &memoryRepo{store: store}
}

func (r *memoryRepo) GetOrder(ctx context.Context, id string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, ok := r.store.Get(ordersCollection, id)
	if !ok {
		return nil, ErrOrderNotFound
	}
	o, err := orderFromDocument(id, doc)
	if err != nil {
		return nil, fmt.Errorf("decode order %s: %w", id, err)
	}
	return o, nil
}

func (r *memoryRepo) ListOrders(ctx context.Context) ([]*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decodeOrders(r.store.List(ordersCollection)), nil
}

func (r *memoryRepo) UpdateField(ctx context.Context, id, field string, value any) error {
	if field != FieldStatus {
		return fmt.Errorf("%w: %s", ErrUnsupportedField, field)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.store.Update(ordersCollection, id, docstore.Document{field: value})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}

func (r *memoryRepo) RunTransaction(ctx context.Context, fn func(context.Context, Tx) error) error {
	return r.store.RunTransaction(ctx, func(txn *docstore.Txn) error {
		return fn(ctx, &memoryTx{txn: txn})
	})
}

func (r *memoryRepo) Watch(fn func([]*Order)) (func(), error) {
	return r.store.Subscribe(ordersCollection, func(snaps []docstore.Snapshot) {
		fn(decodeOrders(snaps))
	}), nil
}

// decodeOrders drops documents too malformed to decode at all.
func decodeOrders(snaps []docstore.Snapshot) []*Order {
	orders := make([]*Order, 0, len(snaps))
	for _, s := range snaps {
		o, err := orderFromDocument(s.ID, s.Data)
		if err != nil {
			continue
		}
		orders = append(orders, o)
	}
	return orders
}

type memoryTx struct{ txn *docstore.Txn }

func (t *memoryTx) OrderItems(_ context.Context, orderID string) ([]LineItem, error) {
	doc, ok := t.txn.Get(ordersCollection, orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	return itemsFromValue(doc["items"]), nil
}

func (t *memoryTx) ProductStock(_ context.Context, productID string) (any, bool, error) {
	doc, ok := t.txn.Get(productsCollection, productID)
	if !ok {
		return nil, false, nil
	}
	return doc["quantity"], true, nil
}

func (t *memoryTx) SetProductStock(_ context.Context, productID string, quantity int) error {
	return t.txn.Update(productsCollection, productID, docstore.Document{"quantity": quantity})
}

func (t *memoryTx) NextOrderID(context.Context) (string, error) {
	last := int64(orderCounterBase)
	if doc, ok := t.txn.Get(countersCollection, orderCounterID); ok {
		if v, err := cast.ToInt64E(doc["lastId"]); err == nil && v > 0 {
			last = v
		}
	}
	next := last + 1
	t.txn.Set(countersCollection, orderCounterID, docstore.Document{"lastId": next})
	return strconv.FormatInt(next, 10), nil
}

func (t *memoryTx) CreateOrder(_ context.Context, o *Order) error {
	if _, exists := t.txn.Get(ordersCollection, o.ID); exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	t.txn.Set(ordersCollection, o.ID, orderToDocument(o))
	return nil
}

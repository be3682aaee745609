package order

import "context"

// FieldStatus is the only order field the repositories allow updating in place.
const FieldStatus = "status"

// Repository defines data access for orders.
type Repository interface {
	// GetOrder returns ErrOrderNotFound when the id is unknown.
	GetOrder(ctx context.Context, id string) (*Order, error)

	ListOrders(ctx context.Context) ([]*Order, error)

	// UpdateField writes a single field of one order.
	UpdateField(ctx context.Context, id, field string, value any) error

	// RunTransaction executes fn atomically. Every write made through tx is
	// committed when fn returns nil and discarded otherwise. Implementations
	// may run fn more than once, so fn must not leak state between attempts.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Watch calls fn with the full order list now and after every change
	// until the returned function is called.
	Watch(fn func([]*Order)) (unsubscribe func(), err error)
}

// Tx is the transactional view used by stock reconciliation and checkout.
// Reads lock what they return until the transaction ends.
type Tx interface {
	OrderItems(ctx context.Context, orderID string) ([]LineItem, error)

	// ProductStock returns the stored quantity without interpreting it;
	// found is false when the product does not exist.
	ProductStock(ctx context.Context, productID string) (raw any, found bool, err error)

	SetProductStock(ctx context.Context, productID string, quantity int) error

	// NextOrderID advances the order counter and returns the new id.
	NextOrderID(ctx context.Context) (string, error)

	CreateOrder(ctx context.Context, o *Order) error
}

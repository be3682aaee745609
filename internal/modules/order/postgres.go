package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/georgemunganga/shopu-backend/internal/platform/database"
	"go.uber.org/zap"
)

const watchReloadTimeout = 10 * time.Second

// Columns that UpdateField may touch, keyed by field name.
var updatableColumns = map[string]string{FieldStatus: "status"}

type postgresRepo struct {
	db       *sql.DB
	notifier *database.Notifier
	log      *zap.Logger
}

// NewPostgresRepository stores orders in PostgreSQL. notifier may be nil, in
// which case Watch is unavailable.
func NewPostgresRepository(db *sql.DB, notifier *database.Notifier, log *zap.Logger) Repository {
	return &postgresRepo{db: db, notifier: notifier, log: log}
}

const selectOrder = `SELECT id, customer, items, total, status, created_at, payment_info FROM orders`

func (r *postgresRepo) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+` WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func (r *postgresRepo) ListOrders(ctx context.Context) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrder+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) UpdateField(ctx context.Context, id, field string, value any) error {
	column, ok := updatableColumns[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedField, field)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET `+column+`=$1, updated_at=NOW() WHERE id=$2`, value, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepo) RunTransaction(ctx context.Context, fn func(context.Context, Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, &postgresTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepo) Watch(fn func([]*Order)) (func(), error) {
	if r.notifier == nil {
		return nil, errors.New("order change notifications are not configured")
	}
	var mu sync.Mutex
	reload := func() {
		mu.Lock()
		defer mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), watchReloadTimeout)
		defer cancel()
		orders, err := r.ListOrders(ctx)
		if err != nil {
			r.log.Warn("reload orders for watchers", zap.Error(err))
			return
		}
		fn(orders)
	}
	unsubscribe, err := r.notifier.Subscribe(database.ChannelOrders, reload)
	if err != nil {
		return nil, err
	}
	reload()
	return unsubscribe, nil
}

type postgresTx struct{ tx *sql.Tx }

func (t *postgresTx) OrderItems(ctx context.Context, orderID string) ([]LineItem, error) {
	var raw []byte
	err := t.tx.QueryRowContext(ctx,
		`SELECT items FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeItems(raw)
}

func (t *postgresTx) ProductStock(ctx context.Context, productID string) (any, bool, error) {
	var quantity int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT quantity FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return quantity, true, nil
}

func (t *postgresTx) SetProductStock(ctx context.Context, productID string, quantity int) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE products SET quantity=$1, updated_at=NOW() WHERE id=$2`, quantity, productID)
	return err
}

func (t *postgresTx) NextOrderID(ctx context.Context) (string, error) {
	var next int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO counters (name, last_id) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET last_id = counters.last_id + 1
		RETURNING last_id`, orderCounterID, orderCounterBase+1).Scan(&next)
	if err != nil {
		return "", fmt.Errorf("advance order counter: %w", err)
	}
	return strconv.FormatInt(next, 10), nil
}

func (t *postgresTx) CreateOrder(ctx context.Context, o *Order) error {
	items, err := json.Marshal(itemsToValue(o.Items))
	if err != nil {
		return err
	}
	var payment any
	if o.PaymentInfo != nil {
		b, err := json.Marshal(paymentToMap(o.PaymentInfo))
		if err != nil {
			return err
		}
		payment = b
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer, items, total, status, created_at, payment_info)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.Customer, items, o.Total, string(o.Status), o.CreatedAt, payment)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	o := &Order{}
	var status string
	var items, payment []byte
	if err := row.Scan(&o.ID, &o.Customer, &items, &o.Total, &status, &o.CreatedAt, &payment); err != nil {
		return nil, err
	}
	o.Status = normalizeStatus(status)

	var err error
	if o.Items, err = decodeItems(items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	if len(payment) > 0 {
		var m map[string]any
		if err := json.Unmarshal(payment, &m); err != nil {
			return nil, fmt.Errorf("decode payment info of order %s: %w", o.ID, err)
		}
		o.PaymentInfo = paymentFromMap(m)
	}
	return o, nil
}

func decodeItems(raw []byte) ([]LineItem, error) {
	if len(raw) == 0 {
		return []LineItem{}, nil
	}
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return itemsFromValue(values), nil
}

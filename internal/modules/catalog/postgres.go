package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgemunganga/shopu-backend/internal/platform/database"
	"go.uber.org/zap"
)

type postgresRepo struct {
	db       *sql.DB
	notifier *database.Notifier
	log      *zap.Logger
}

func NewPostgresRepository(db *sql.DB, notifier *database.Notifier, log *zap.Logger) Repository {
	return &postgresRepo{db: db, notifier: notifier, log: log}
}

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, quantity, category, image_url)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.Name, p.Price, p.Quantity, p.Category, nullable(p.ImageURL))
	return err
}

func scanProduct(scan func(...interface{}) error) (*Product, error) {
	p := &Product{}
	var image sql.NullString
	if err := scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.Category, &image); err != nil {
		return nil, err
	}
	p.ImageURL = image.String
	return p, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id,name,price,quantity,category,image_url
		FROM products WHERE id=$1`, id)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (r *postgresRepo) List(ctx context.Context) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id,name,price,quantity,category,image_url
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name=$1, price=$2, quantity=$3, category=$4, image_url=$5, updated_at=NOW()
		WHERE id=$6`,
		p.Name, p.Price, p.Quantity, p.Category, nullable(p.ImageURL), p.ID)
	return affected(res, err)
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	return affected(res, err)
}

func (r *postgresRepo) Watch(fn func([]*Product)) (func(), error) {
	if r.notifier == nil {
		return nil, errors.New("product change notifications are not configured")
	}
	reload := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		products, err := r.List(ctx)
		if err != nil {
			r.log.Warn("reload products for watchers", zap.Error(err))
			return
		}
		fn(products)
	}
	unsubscribe, err := r.notifier.Subscribe(database.ChannelProducts, reload)
	if err != nil {
		return nil, err
	}
	reload()
	return unsubscribe, nil
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgemunganga/shopu-backend/internal/platform/docstore"
	"github.com/spf13/cast"
)

// The order module reads and adjusts stock in the same collection.
const productsCollection = "products"

type productDoc struct {
	Name     string `doc:"name"`
	Price    any    `doc:"price"`
	Quantity any    `doc:"quantity"`
	Category string `doc:"category"`
	ImageURL string `doc:"imageUrl"`
}

type memoryRepo struct{ store *docstore.Store }

func NewMemoryRepository(store *docstore.Store) Repository { return &memoryRepo{store: store} }

func (r *memoryRepo) Create(ctx context.Context, p *Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := r.store.Get(productsCollection, p.ID); exists {
		return fmt.Errorf("product %s already exists", p.ID)
	}
	r.store.Set(productsCollection, p.ID, productToDocument(p))
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, ok := r.store.Get(productsCollection, id)
	if !ok {
		return nil, ErrProductNotFound
	}
	return productFromDocument(id, doc)
}

func (r *memoryRepo) List(ctx context.Context) ([]*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decodeProducts(r.store.List(productsCollection)), nil
}

func (r *memoryRepo) Update(ctx context.Context, p *Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.store.Update(productsCollection, p.ID, productToDocument(p))
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrProductNotFound
	}
	return err
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := r.store.Get(productsCollection, id); !ok {
		return ErrProductNotFound
	}
	r.store.Delete(productsCollection, id)
	return nil
}

func (r *memoryRepo) Watch(fn func([]*Product)) (func(), error) {
	return r.store.Subscribe(productsCollection, func(snaps []docstore.Snapshot) {
		fn(decodeProducts(snaps))
	}), nil
}

func productToDocument(p *Product) docstore.Document {
	return docstore.Document{
		"name":     p.Name,
		"price":    p.Price,
		"quantity": p.Quantity,
		"category": p.Category,
		"imageUrl": p.ImageURL,
	}
}

// productFromDocument tolerates prices and stock stored as text; values
// that cannot be read become zero.
func productFromDocument(id string, doc docstore.Document) (*Product, error) {
	var d productDoc
	if err := docstore.Decode(doc, &d); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	category := d.Category
	if category == "" {
		category = DefaultCategory
	}
	return &Product{
		ID:       id,
		Name:     d.Name,
		Price:    cast.ToFloat64(d.Price),
		Quantity: storedQuantity(d.Quantity),
		Category: category,
		ImageURL: d.ImageURL,
	}, nil
}

func decodeProducts(snaps []docstore.Snapshot) []*Product {
	products := make([]*Product, 0, len(snaps))
	for _, s := range snaps {
		if p, err := productFromDocument(s.ID, s.Data); err == nil {
			products = append(products, p)
		}
	}
	return products
}

package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, form ProductForm) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	// ListProducts returns matching products sorted by name.
	ListProducts(ctx context.Context, f Filter) ([]*Product, error)
	UpdateProduct(ctx context.Context, id string, form ProductForm) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error
	// ObserveProducts calls fn with the full catalog now and after each change.
	ObserveProducts(fn func([]*Product)) (unsubscribe func(), err error)
}

type service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) Service { return &service{repo: repo, log: log} }

func (s *service) CreateProduct(ctx context.Context, form ProductForm) (*Product, error) {
	p := &Product{ID: uuid.NewString()}
	if err := applyForm(p, form); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.log.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, f Filter) ([]*Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return filterProducts(products, f), nil
}

func (s *service) UpdateProduct(ctx context.Context, id string, form ProductForm) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyForm(p, form); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("product deleted", zap.String("product_id", id))
	return nil
}

func (s *service) ObserveProducts(fn func([]*Product)) (func(), error) {
	return s.repo.Watch(func(products []*Product) {
		fn(filterProducts(products, Filter{}))
	})
}

func applyForm(p *Product, form ProductForm) error {
	name := strings.TrimSpace(form.Name)
	if name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	price, err := priceOf(form.Price)
	if err != nil {
		return err
	}
	qty, err := quantityOf(form.Quantity)
	if err != nil {
		return err
	}
	category := strings.TrimSpace(form.Category)
	if category == "" {
		category = DefaultCategory
	}
	p.Name = name
	p.Price = price
	p.Quantity = qty
	p.Category = category
	p.ImageURL = strings.TrimSpace(form.ImageURL)
	return nil
}

func filterProducts(products []*Product, f Filter) []*Product {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*Product, 0, len(products))
	for _, p := range products {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

package catalog

import (
	"errors"
	"fmt"
)

// DefaultCategory is assigned to products saved without one.
const DefaultCategory = "General"

// Product is a sellable item and its current stock.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Category string  `json:"category"`
	ImageURL string  `json:"image_url,omitempty"`
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool { return p.Quantity > 0 }

// ProductForm is what the admin screens submit. Price and Quantity arrive
// either as numbers or as the text typed into the form, e.g. "$1.500".
type ProductForm struct {
	Name     string `json:"name"`
	Price    any    `json:"price"`
	Quantity any    `json:"quantity"`
	Category string `json:"category"`
	ImageURL string `json:"image_url"`
}

// Filter narrows ListProducts. Zero fields match everything.
type Filter struct {
	Category string
	// Search matches the product name, case-insensitively.
	Search string
}

var ErrProductNotFound = errors.New("product not found")

// ValidationError rejects a form field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

package main

import (
	"context"
	"fmt"

	"github.com/georgemunganga/shopu-backend/internal/modules/catalog"
	"github.com/georgemunganga/shopu-backend/internal/modules/user"
)

const demoAdmin = "admin@univalle.edu.co"

var demoProducts = []catalog.ProductForm{
	{Name: "Café tinto", Price: "$1.500", Quantity: "40", Category: "Bebidas"},
	{Name: "Jugo de mango", Price: "$3.000", Quantity: "25", Category: "Bebidas"},
	{Name: "Empanada", Price: "$2.500", Quantity: "30", Category: "Comida"},
	{Name: "Cuaderno argollado", Price: "$8.900", Quantity: "15", Category: "Papelería"},
	{Name: "Lapicero", Price: "$1.200", Quantity: "100"},
}

// seedDemo fills an empty catalog and makes sure an admin exists.
func seedDemo(ctx context.Context, users user.Repository, userService user.Service, catalogService catalog.Service) error {
	if _, err := userService.GetUser(ctx, demoAdmin); err != nil {
		if err := users.SaveUser(ctx, &user.User{Email: demoAdmin, FirstName: "Admin", Role: user.RoleAdmin}); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	existing, err := catalogService.ListProducts(ctx, catalog.Filter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, form := range demoProducts {
		if _, err := catalogService.CreateProduct(ctx, form); err != nil {
			return fmt.Errorf("seed product %s: %w", form.Name, err)
		}
	}
	return nil
}

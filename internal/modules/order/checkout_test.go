package order

import (
	"context"
	"testing"

	"github.com/georgemunganga/shopu-backend/internal/modules/cart"
	"github.com/georgemunganga/shopu-backend/internal/platform/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartWith(items ...cart.Item) *cart.Cart {
	c := cart.New()
	for _, it := range items {
		c.Add(it)
	}
	return c
}

func checkout(customer string, c *cart.Cart) CheckoutRequest {
	return CheckoutRequest{Customer: customer, Cart: c, Payment: PaymentInfo{Name: " Ana Ruiz ", Phone: "3001234567", Reference: "NEQUI-42"}}
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.product("1", 10)
	f.product("2", 5)
	c := cartWith(
		cart.Item{ProductID: "1", Name: "Café", UnitPrice: 2000, Quantity: 2},
		cart.Item{ProductID: "2", Name: "Empanada", UnitPrice: 1500, Quantity: 3},
	)

	o, err := f.svc.PlaceOrder(context.Background(), checkout("ana@correounivalle.edu.co", c))
	require.NoError(t, err)

	assert.Equal(t, "1001", o.ID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, 8500.0, o.Total)
	assert.True(t, o.TotalMatches())
	assert.Equal(t, fixedNow.UnixMilli(), o.CreatedAt)
	assert.Equal(t, "Ana Ruiz", o.PaymentInfo.Name)
	assert.Zero(t, c.Len(), "cart is cleared")

	// Stock is only deducted on delivery.
	assert.Equal(t, 10, f.stock("1"))
	assert.Equal(t, 5, f.stock("2"))

	stored, err := f.svc.GetOrder(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, o.Items, stored.Items)
	assert.Equal(t, "NEQUI-42", stored.PaymentInfo.Reference)

	second, err := f.svc.PlaceOrder(context.Background(), checkout("ana@correounivalle.edu.co",
		cartWith(cart.Item{ProductID: "1", Name: "Café", UnitPrice: 2000, Quantity: 1})))
	require.NoError(t, err)
	assert.Equal(t, "1002", second.ID)
}

func TestPlaceOrderContinuesExistingCounter(t *testing.T) {
	f := newFixture(t, nil)
	f.product("1", 10)
	f.store.Set(countersCollection, orderCounterID, docstore.Document{"lastId": 1500})

	o, err := f.svc.PlaceOrder(context.Background(), checkout("ana@correounivalle.edu.co",
		cartWith(cart.Item{ProductID: "1", Name: "Café", UnitPrice: 2000, Quantity: 1})))

	require.NoError(t, err)
	assert.Equal(t, "1501", o.ID)
}

func TestPlaceOrderRejectsShortage(t *testing.T) {
	f := newFixture(t, nil)
	f.product("1", 1)
	c := cartWith(cart.Item{ProductID: "1", Name: "Café", UnitPrice: 2000, Quantity: 3})

	_, err := f.svc.PlaceOrder(context.Background(), checkout("ana@correounivalle.edu.co", c))

	var short *StockShortageError
	require.ErrorAs(t, err, &short)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 1, short.Available)
	assert.Equal(t, 3, short.Requested)
	assert.Contains(t, err.Error(), "Café")
	assert.Equal(t, 1, c.Len(), "cart kept for another try")
	assert.Empty(t, f.store.List(ordersCollection))
	_, advanced := f.store.Get(countersCollection, orderCounterID)
	assert.False(t, advanced)
}

func TestPlaceOrderRejectsUnknownProduct(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.PlaceOrder(context.Background(), checkout("ana@correounivalle.edu.co",
		cartWith(cart.Item{ProductID: "ghost", Name: "Ghost", UnitPrice: 1, Quantity: 1})))

	var short *StockShortageError
	require.ErrorAs(t, err, &short)
	assert.Zero(t, short.Available)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t, nil)
	f.product("1", 10)
	full := func() *cart.Cart { return cartWith(cart.Item{ProductID: "1", Name: "Café", UnitPrice: 2000, Quantity: 1}) }

	_, err := f.svc.PlaceOrder(context.Background(), checkout("  ", full()))
	assert.ErrorIs(t, err, ErrCustomerRequired)

	_, err = f.svc.PlaceOrder(context.Background(), checkout("ana@correounivalle.edu.co", cart.New()))
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.svc.PlaceOrder(context.Background(), CheckoutRequest{Customer: "ana@correounivalle.edu.co", Cart: full()})
	assert.ErrorIs(t, err, ErrPayerNameRequired)
}

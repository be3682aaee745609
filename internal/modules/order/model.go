package order

import (
	"github.com/georgemunganga/shopu-backend/internal/modules/cart"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusReady      Status = "ready"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses lists the statuses in the order staff tabs show them.
var AllStatuses = []Status{StatusPending, StatusInProgress, StatusReady, StatusDelivered, StatusCancelled}

// LineItem is one product line of a placed order.
type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// PaymentInfo is contact metadata the customer leaves at checkout. It is
// recorded as-is; no payment is processed.
type PaymentInfo struct {
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Order is a customer's placed purchase.
type Order struct {
	ID          string       `json:"id"`
	Customer    string       `json:"customer"`
	Items       []LineItem   `json:"items"`
	Total       float64      `json:"total"`
	Status      Status       `json:"status"`
	CreatedAt   int64        `json:"created_at"` // epoch milliseconds
	PaymentInfo *PaymentInfo `json:"payment_info,omitempty"`
}

// ComputedTotal sums UnitPrice × Quantity over the items.
func (o *Order) ComputedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(decimal.NewFromFloat(it.UnitPrice).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// TotalMatches reports whether the stored total equals the item sum to the cent.
func (o *Order) TotalMatches() bool {
	return decimal.NewFromFloat(o.Total).Round(2).Equal(o.ComputedTotal().Round(2))
}

// Filter narrows ListOrders. Zero fields match everything.
type Filter struct {
	Status   Status
	Customer string
	// Search matches order id, customer, or any item name, case-insensitively.
	Search string
}

// CheckoutRequest is what the checkout flow hands to PlaceOrder.
type CheckoutRequest struct {
	Customer string
	Cart     *cart.Cart
	Payment  PaymentInfo
}

// PlaceOrderRequest is the HTTP payload for checkout.
type PlaceOrderRequest struct {
	Items       []cart.Item `json:"items"`
	PaymentInfo PaymentInfo `json:"payment_info"`
}

// UpdateStatusRequest is the payload for changing one order's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// SaveChangesRequest carries a batch of pending status edits keyed by order id.
type SaveChangesRequest struct {
	Changes map[string]string `json:"changes"`
}

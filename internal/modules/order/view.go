package order

import "github.com/georgemunganga/shopu-backend/internal/platform/format"

// OrderView is the JSON shape served to clients.
type OrderView struct {
	*Order
	StatusLabel  string `json:"status_label"`
	TotalDisplay string `json:"total_display"`
	// TotalMismatch flags orders whose stored total differs from the item sum.
	TotalMismatch bool `json:"total_mismatch,omitempty"`
}

func NewOrderView(o *Order) OrderView {
	return OrderView{
		Order:         o,
		StatusLabel:   o.Status.Label(),
		TotalDisplay:  format.COP(o.Total),
		TotalMismatch: !o.TotalMatches(),
	}
}

func viewsOf(orders []*Order) []OrderView {
	out := make([]OrderView, len(orders))
	for i, o := range orders {
		out[i] = NewOrderView(o)
	}
	return out
}

// StatusUpdateView adds the stock error text, which StockOutcome omits.
type StatusUpdateView struct {
	*StatusUpdate
	StockError string `json:"stock_error,omitempty"`
}

func newStatusUpdateView(u *StatusUpdate) StatusUpdateView {
	v := StatusUpdateView{StatusUpdate: u}
	if u.Stock.Err != nil {
		v.StockError = u.Stock.Err.Error()
	}
	return v
}

package order

import (
	"math"
	"strconv"
	"strings"

	"github.com/georgemunganga/shopu-backend/internal/platform/docstore"
	"github.com/spf13/cast"
)

// Order documents are schemaless, so every field is read leniently. The
// first release of the mobile app wrote items as {id, name, price, quantity}
// and payment info with Spanish keys; both shapes are accepted.

type orderDoc struct {
	Customer    string         `doc:"customer"`
	Items       []any          `doc:"items"`
	Total       float64        `doc:"total"`
	Status      string         `doc:"status"`
	CreatedAt   int64          `doc:"createdAt"`
	PaymentInfo map[string]any `doc:"paymentInfo"`
}

func orderFromDocument(id string, doc docstore.Document) (*Order, error) {
	var d orderDoc
	if err := docstore.Decode(doc, &d); err != nil {
		return nil, err
	}
	return &Order{
		ID:          id,
		Customer:    d.Customer,
		Items:       itemsFromValue(d.Items),
		Total:       d.Total,
		Status:      normalizeStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		PaymentInfo: paymentFromMap(d.PaymentInfo),
	}, nil
}

func orderToDocument(o *Order) docstore.Document {
	doc := docstore.Document{
		"customer":  o.Customer,
		"items":     itemsToValue(o.Items),
		"total":     o.Total,
		"status":    string(o.Status),
		"createdAt": o.CreatedAt,
	}
	if o.PaymentInfo != nil {
		doc["paymentInfo"] = paymentToMap(o.PaymentInfo)
	}
	return doc
}

func itemsFromValue(v any) []LineItem {
	raw, _ := v.([]any)
	items := make([]LineItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, itemFromValue(r))
	}
	return items
}

// itemFromValue never fails: anything unreadable becomes a zero field, and
// the reconciler skips lines without a product id or a positive quantity.
func itemFromValue(v any) LineItem {
	m := asMap(v)
	if m == nil {
		return LineItem{}
	}
	return LineItem{
		ProductID: cast.ToString(first(m, "productId", "id")),
		Name:      cast.ToString(m["name"]),
		UnitPrice: cast.ToFloat64(first(m, "unitPrice", "price")),
		Quantity:  coerceInt(m["quantity"]),
	}
}

func itemsToValue(items []LineItem) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = map[string]any{
			"productId": it.ProductID,
			"name":      it.Name,
			"unitPrice": it.UnitPrice,
			"quantity":  it.Quantity,
		}
	}
	return out
}

func paymentFromMap(m map[string]any) *PaymentInfo {
	if len(m) == 0 {
		return nil
	}
	return &PaymentInfo{
		Name:      cast.ToString(first(m, "name", "nombre")),
		Phone:     cast.ToString(first(m, "phone", "telefono")),
		Reference: cast.ToString(first(m, "reference", "referencia")),
	}
}

func paymentToMap(p *PaymentInfo) map[string]any {
	return map[string]any{"name": p.Name, "phone": p.Phone, "reference": p.Reference}
}

// coerceInt reads a stored number of any shape. Missing, unparsable,
// non-finite or out-of-range values are 0; fractional values are truncated.
func coerceInt(v any) int {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
		return 0
	case float64:
		return floatToInt(t)
	case float32:
		return floatToInt(float64(t))
	}
	if n, err := cast.ToIntE(v); err == nil {
		return n
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return floatToInt(f)
	}
	return 0
}

func floatToInt(f float64) int {
	if math.IsNaN(f) || f >= math.MaxInt || f <= math.MinInt {
		return 0
	}
	return int(f)
}

func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case docstore.Document:
		return t
	default:
		return nil
	}
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

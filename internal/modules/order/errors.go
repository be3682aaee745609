package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrUnsupportedField  = errors.New("unsupported order field")
	ErrNoChanges         = errors.New("no status changes to save")
	ErrCustomerRequired  = errors.New("customer is required")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrPayerNameRequired = errors.New("payer name is required")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidLineItem   = errors.New("line items need a product id and a positive quantity")
)

// StatusWriteError means the order itself could not be read or updated.
// It is the only failure UpdateOrderStatus reports.
type StatusWriteError struct {
	OrderID string
	Err     error
}

func (e *StatusWriteError) Error() string {
	return fmt.Sprintf("update status of order %s: %v", e.OrderID, e.Err)
}

func (e *StatusWriteError) Unwrap() error { return e.Err }

// StockAdjustmentError means the stock transaction failed after the status
// was written. It is recovered, never returned from UpdateOrderStatus.
type StockAdjustmentError struct {
	OrderID string
	Action  StockAction
	Err     error
}

func (e *StockAdjustmentError) Error() string {
	return fmt.Sprintf("%s stock for order %s: %v", e.Action, e.OrderID, e.Err)
}

func (e *StockAdjustmentError) Unwrap() error { return e.Err }

// StockShortageError rejects a checkout line that exceeds available stock.
type StockShortageError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.Name, e.Available, e.Requested)
}

func (e *StockShortageError) Is(target error) bool { return target == ErrInsufficientStock }

// SkipReason explains why a line item was left out of stock reconciliation.
type SkipReason string

const (
	SkipInvalidItem     SkipReason = "invalid_item"
	SkipProductNotFound SkipReason = "product_not_found"
)

package order

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// TopicStockWarning is the event bus topic carrying StockWarning values.
const TopicStockWarning = "orders:stock_warning"

// StatusUpdate describes what UpdateOrderStatus did.
type StatusUpdate struct {
	OrderID  string       `json:"order_id"`
	Previous Status       `json:"previous"`
	Current  Status       `json:"current"`
	Stock    StockOutcome `json:"stock"`
}

// StockOutcome is the result of the reconciliation that followed a status
// write. Err is set when the transaction failed; nothing was adjusted then.
type StockOutcome struct {
	Action   StockAction       `json:"action"`
	Adjusted []StockAdjustment `json:"adjusted,omitempty"`
	Skipped  []SkippedItem     `json:"skipped,omitempty"`
	Err      error             `json:"-"`
}

func (o StockOutcome) Failed() bool { return o.Err != nil }

type StockAdjustment struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
}

type SkippedItem struct {
	Index     int        `json:"index"`
	ProductID string     `json:"product_id,omitempty"`
	Quantity  int        `json:"quantity"`
	Reason    SkipReason `json:"reason"`
}

// StockWarning tells staff that stock may be out of step with order status.
type StockWarning struct {
	OrderID string        `json:"order_id"`
	Action  StockAction   `json:"action"`
	Error   string        `json:"error,omitempty"`
	Skipped []SkippedItem `json:"skipped,omitempty"`
	At      time.Time     `json:"at"`
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID, newStatus string) (*StatusUpdate, error) {
	next, ok := ParseStatus(newStatus)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, newStatus)
	}
	// Once started, the update runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	unlock := s.inFlight.lock(orderID)
	defer unlock()

	previous, err := s.writeStatus(ctx, orderID, next)
	if err != nil {
		s.countStatus("failed")
		s.log.Warn("order status update failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, &StatusWriteError{OrderID: orderID, Err: err}
	}
	s.countStatus("ok")

	update := &StatusUpdate{OrderID: orderID, Previous: previous, Current: next}
	update.Stock = s.reconcileStock(ctx, orderID, stockActionFor(previous, next))
	s.log.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("previous", string(previous)),
		zap.String("current", string(next)),
		zap.String("stock_action", string(update.Stock.Action)),
		zap.Bool("stock_failed", update.Stock.Failed()))
	return update, nil
}

// writeStatus reads the current status and writes next, returning the status
// observed before the write.
func (s *service) writeStatus(ctx context.Context, orderID string, next Status) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, s.statusWriteTimeout)
	defer cancel()

	current, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateField(ctx, orderID, FieldStatus, string(next)); err != nil {
		return "", err
	}
	return current.Status, nil
}

func (s *service) reconcileStock(ctx context.Context, orderID string, action StockAction) StockOutcome {
	out := StockOutcome{Action: action}
	if action == StockNone {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, s.stockTxTimeout)
	defer cancel()

	err := s.repo.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		out.Adjusted, out.Skipped = nil, nil

		items, err := tx.OrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		// Lock products in a stable order so concurrent reconciliations of
		// overlapping orders cannot deadlock.
		idx := make([]int, len(items))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return items[idx[a]].ProductID < items[idx[b]].ProductID
		})

		for _, i := range idx {
			it := items[i]
			if it.ProductID == "" || it.Quantity <= 0 {
				out.Skipped = append(out.Skipped, SkippedItem{Index: i, ProductID: it.ProductID, Quantity: it.Quantity, Reason: SkipInvalidItem})
				continue
			}
			raw, found, err := tx.ProductStock(ctx, it.ProductID)
			if err != nil {
				return fmt.Errorf("read stock of %s: %w", it.ProductID, err)
			}
			if !found {
				out.Skipped = append(out.Skipped, SkippedItem{Index: i, ProductID: it.ProductID, Quantity: it.Quantity, Reason: SkipProductNotFound})
				continue
			}
			before := coerceInt(raw)
			after := applyStock(action, before, it.Quantity)
			if err := tx.SetProductStock(ctx, it.ProductID, after); err != nil {
				return fmt.Errorf("write stock of %s: %w", it.ProductID, err)
			}
			out.Adjusted = append(out.Adjusted, StockAdjustment{ProductID: it.ProductID, Quantity: it.Quantity, Before: before, After: after})
		}
		sort.SliceStable(out.Skipped, func(a, b int) bool { return out.Skipped[a].Index < out.Skipped[b].Index })
		return nil
	})
	if err != nil {
		out.Adjusted = nil
		out.Err = &StockAdjustmentError{OrderID: orderID, Action: action, Err: err}
	}
	s.reportStock(orderID, out)
	return out
}

// applyStock never lets a deduction take stock below zero. Restores
// saturate at the int range.
func applyStock(action StockAction, current, quantity int) int {
	switch action {
	case StockDeduct:
		if current <= quantity {
			return 0
		}
		return current - quantity
	case StockRestore:
		if current > math.MaxInt-quantity {
			return math.MaxInt
		}
		return current + quantity
	default:
		return current
	}
}

func (s *service) reportStock(orderID string, out StockOutcome) {
	var invalid []SkippedItem
	for _, sk := range out.Skipped {
		fields := []zap.Field{
			zap.String("order_id", orderID),
			zap.Int("index", sk.Index),
			zap.String("product_id", sk.ProductID),
			zap.Int("quantity", sk.Quantity),
		}
		if sk.Reason == SkipInvalidItem {
			invalid = append(invalid, sk)
			s.log.Warn("skipping invalid order item", fields...)
		} else {
			s.log.Debug("skipping item for missing product", fields...)
		}
		if s.metrics != nil {
			s.metrics.StockItemsSkipped.WithLabelValues(string(sk.Reason)).Inc()
		}
	}

	result := "ok"
	if out.Err != nil {
		result = "failed"
		s.log.Warn("stock reconciliation failed; order status kept",
			zap.String("order_id", orderID),
			zap.String("action", string(out.Action)),
			zap.Error(out.Err))
	}
	if s.metrics != nil {
		s.metrics.StockAdjustments.WithLabelValues(string(out.Action), result).Inc()
	}

	if s.bus != nil && (out.Err != nil || len(invalid) > 0) {
		w := StockWarning{OrderID: orderID, Action: out.Action, Skipped: invalid, At: s.now()}
		if out.Err != nil {
			w.Error = out.Err.Error()
		}
		s.bus.Publish(TopicStockWarning, w)
	}
}

func (s *service) countStatus(result string) {
	if s.metrics != nil {
		s.metrics.StatusUpdates.WithLabelValues(result).Inc()
	}
}

package order

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchResult reports a SaveStatusChanges run per order.
type BatchResult struct {
	Updated []string                 `json:"updated"`
	Failed  map[string]error         `json:"-"`
	Updates map[string]*StatusUpdate `json:"updates"`
}

// Failures is the number of orders whose status could not be written.
func (r *BatchResult) Failures() int { return len(r.Failed) }

// FailedIDs lists the failed order ids in sorted order.
func (r *BatchResult) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *service) SaveStatusChanges(ctx context.Context, changes map[string]string) (*BatchResult, error) {
	pending := make(map[string]string, len(changes))
	for id, raw := range changes {
		if next, ok := ParseStatus(raw); ok {
			current, err := s.repo.GetOrder(ctx, id)
			if err == nil && current.Status == next {
				continue
			}
		}
		pending[id] = raw
	}
	if len(pending) == 0 {
		return nil, ErrNoChanges
	}

	res := &BatchResult{
		Failed:  make(map[string]error),
		Updates: make(map[string]*StatusUpdate),
	}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for id, raw := range pending {
		id, raw := id, raw
		g.Go(func() error {
			update, err := s.UpdateOrderStatus(ctx, id, raw)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[id] = err
				return nil
			}
			res.Updated = append(res.Updated, id)
			res.Updates[id] = update
			return nil
		})
	}
	// Every goroutine records its own failure, so Wait never reports one.
	_ = g.Wait()
	sort.Strings(res.Updated)

	if n := res.Failures(); n > 0 {
		s.log.Warn("some status changes failed",
			zap.Int("failed", n),
			zap.Int("updated", len(res.Updated)),
			zap.Strings("failed_ids", res.FailedIDs()))
	}
	return res, nil
}


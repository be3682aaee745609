package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// slowReads widens the gap between reading and writing an order's status.
type slowReads struct{ Repository }

func (r slowReads) GetOrder(ctx context.Context, id string) (*Order, error) {
	time.Sleep(20 * time.Millisecond)
	return r.Repository.GetOrder(ctx, id)
}

func TestConcurrentUpdatesOfOneOrderDeductOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, func(r Repository) Repository { return slowReads{r} })
	f.product("A", 10)
	f.order("1001", "pending", item("A", 3))

	var wg sync.WaitGroup
	updates := make([]*StatusUpdate, 8)
	for i := range updates {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := f.svc.UpdateOrderStatus(context.Background(), "1001", "delivered")
			if err == nil {
				updates[i] = u
			}
		}()
	}
	wg.Wait()

	deducts := 0
	for _, u := range updates {
		require.NotNil(t, u)
		if u.Stock.Action == StockDeduct {
			deducts++
		}
	}
	assert.Equal(t, 1, deducts)
	assert.Equal(t, 7, f.stock("A"))
}

func TestOrderLocksReleaseEntries(t *testing.T) {
	var l orderLocks
	unlockA := l.lock("a")
	unlockB := l.lock("b")

	acquired := make(chan struct{})
	go func() {
		unlock := l.lock("a")
		unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder entered while the first still held the lock")
	case <-time.After(20 * time.Millisecond):
	}
	unlockA()
	<-acquired
	unlockB()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}

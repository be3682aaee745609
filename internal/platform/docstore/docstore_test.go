package docstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetReturnsCopies(t *testing.T) {
	s := New()
	s.Set("products", "p1", Document{"name": "Café", "quantity": 10})

	doc, ok := s.Get("products", "p1")
	require.True(t, ok)
	doc["quantity"] = 0

	again, _ := s.Get("products", "p1")
	assert.Equal(t, 10, again["quantity"])
}

func TestUpdateMissingDocument(t *testing.T) {
	s := New()
	err := s.Update("orders", "nope", Document{"status": "ready"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMergesFields(t *testing.T) {
	s := New()
	s.Set("orders", "1001", Document{"status": "pending", "customer": "a@univalle.edu.co"})
	require.NoError(t, s.Update("orders", "1001", Document{"status": "ready"}))

	doc, _ := s.Get("orders", "1001")
	assert.Equal(t, "ready", doc["status"])
	assert.Equal(t, "a@univalle.edu.co", doc["customer"])
}

func TestTransactionCommitsAtomically(t *testing.T) {
	s := New()
	s.Set("products", "p1", Document{"quantity": 10})
	s.Set("products", "p2", Document{"quantity": 4})

	err := s.RunTransaction(context.Background(), func(tx *Txn) error {
		require.NoError(t, tx.Update("products", "p1", Document{"quantity": 7}))
		doc, ok := tx.Get("products", "p1")
		require.True(t, ok)
		assert.Equal(t, 7, doc["quantity"], "reads see own writes")
		tx.Set("products", "p2", Document{"quantity": 1})
		return nil
	})
	require.NoError(t, err)

	p1, _ := s.Get("products", "p1")
	p2, _ := s.Get("products", "p2")
	assert.Equal(t, 7, p1["quantity"])
	assert.Equal(t, 1, p2["quantity"])
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := New()
	s.Set("products", "p1", Document{"quantity": 10})
	boom := errors.New("boom")

	err := s.RunTransaction(context.Background(), func(tx *Txn) error {
		require.NoError(t, tx.Update("products", "p1", Document{"quantity": 0}))
		tx.Delete("products", "p1")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p1, ok := s.Get("products", "p1")
	require.True(t, ok)
	assert.Equal(t, 10, p1["quantity"])
}

func TestTransactionHonoursCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunTransaction(ctx, func(*Txn) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSubscribeDeliversInitialAndChanges(t *testing.T) {
	s := New()
	s.Set("orders", "1001", Document{"status": "pending"})

	var got [][]Snapshot
	unsubscribe := s.Subscribe("orders", func(snap []Snapshot) {
		got = append(got, snap)
	})

	s.Set("orders", "1002", Document{"status": "pending"})
	require.NoError(t, s.RunTransaction(context.Background(), func(tx *Txn) error {
		return tx.Update("orders", "1001", Document{"status": "ready"})
	}))
	s.Set("products", "p1", Document{"quantity": 1})

	require.Len(t, got, 3)
	assert.Len(t, got[0], 1)
	assert.Len(t, got[1], 2)
	assert.Equal(t, "ready", got[2][0].Data["status"])

	unsubscribe()
	unsubscribe()
	s.Delete("orders", "1001")
	assert.Len(t, got, 3)
}

func TestFailedTransactionDoesNotNotify(t *testing.T) {
	s := New()
	calls := 0
	unsubscribe := s.Subscribe("orders", func([]Snapshot) { calls++ })
	defer unsubscribe()

	_ = s.RunTransaction(context.Background(), func(tx *Txn) error {
		tx.Set("orders", "x", Document{})
		return errors.New("abort")
	})
	assert.Equal(t, 1, calls)
}

func TestDecodeIsWeaklyTyped(t *testing.T) {
	var out struct {
		Name     string  `doc:"name"`
		Quantity int     `doc:"quantity"`
		Price    float64 `doc:"price"`
	}
	err := Decode(Document{"name": "Snack", "quantity": "7", "price": 1500}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Snack", out.Name)
	assert.Equal(t, 7, out.Quantity)
	assert.Equal(t, 1500.0, out.Price)
}

func TestAddGeneratesID(t *testing.T) {
	s := New()
	id := s.Add("products", Document{"name": "x"})
	assert.NotEmpty(t, id)
	assert.Len(t, s.List("products"), 1)
}

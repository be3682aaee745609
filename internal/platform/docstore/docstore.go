// Package docstore is an in-memory document database with the semantics the
// storefront relies on from its managed backend: schemaless documents grouped
// in collections, serialised multi-document transactions, and snapshot
// listeners that receive the whole collection on every committed change.
//
// It backs the STORE_DRIVER=memory mode and every module test.
package docstore

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// ErrNotFound is returned when an update targets a missing document.
var ErrNotFound = errors.New("document not found")

// Document is a single schemaless record.
type Document map[string]any

// Snapshot is a document together with its id.
type Snapshot struct {
	ID   string
	Data Document
}

// Listener receives the full contents of a collection.
type Listener func([]Snapshot)

// Store holds every collection. The zero value is not usable; call New.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]Document

	subsMu sync.Mutex
	subs   map[string]map[string]Listener

	// notifyMu serialises deliveries so listeners never observe an older
	// snapshot after a newer one.
	notifyMu sync.Mutex
}

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]Document),
		subs:        make(map[string]map[string]Listener),
	}
}

// Get returns a copy of the document, or false when it does not exist.
func (s *Store) Get(collection, id string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, false
	}
	return copyDocument(doc), true
}

// Set creates or replaces a document.
func (s *Store) Set(collection, id string, doc Document) {
	s.mu.Lock()
	s.put(collection, id, doc)
	s.mu.Unlock()
	s.notify(collection)
}

// Add stores doc under a freshly generated id and returns the id.
func (s *Store) Add(collection string, doc Document) string {
	id := uuid.NewString()
	s.Set(collection, id, doc)
	return id
}

// Update merges fields into an existing document.
func (s *Store) Update(collection, id string, fields Document) error {
	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	merged := copyDocument(doc)
	for k, v := range fields {
		merged[k] = copyValue(v)
	}
	s.collections[collection][id] = merged
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(collection, id string) {
	s.mu.Lock()
	_, ok := s.collections[collection][id]
	delete(s.collections[collection], id)
	s.mu.Unlock()
	if ok {
		s.notify(collection)
	}
}

// List returns every document of a collection ordered by id.
func (s *Store) List(collection string) []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(collection)
}

// RunTransaction executes fn with exclusive access to the store. Writes made
// through the Txn are applied atomically when fn returns nil and discarded
// otherwise.
func (s *Store) RunTransaction(ctx context.Context, fn func(*Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	tx := &Txn{store: s, writes: make(map[string]map[string]*pendingWrite)}
	err := fn(tx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	touched := tx.apply()
	s.mu.Unlock()

	for _, c := range touched {
		s.notify(c)
	}
	return nil
}

// Subscribe registers fn for a collection. fn is called right away with the
// current contents and again after every committed change. Listeners run
// synchronously and must not write to the store themselves.
func (s *Store) Subscribe(collection string, fn Listener) (unsubscribe func()) {
	id := uuid.NewString()
	s.subsMu.Lock()
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[string]Listener)
	}
	s.subs[collection][id] = fn
	s.subsMu.Unlock()

	s.notifyMu.Lock()
	fn(s.List(collection))
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs[collection], id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) notify(collection string) {
	s.subsMu.Lock()
	if len(s.subs[collection]) == 0 {
		s.subsMu.Unlock()
		return
	}
	s.subsMu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subsMu.Lock()
	listeners := make([]Listener, 0, len(s.subs[collection]))
	for _, fn := range s.subs[collection] {
		listeners = append(listeners, fn)
	}
	s.subsMu.Unlock()

	snap := s.List(collection)
	for _, fn := range listeners {
		fn(snap)
	}
}

func (s *Store) put(collection, id string, doc Document) {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Document)
	}
	s.collections[collection][id] = copyDocument(doc)
}

func (s *Store) list(collection string) []Snapshot {
	out := make([]Snapshot, 0, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		out = append(out, Snapshot{ID: id, Data: copyDocument(doc)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Decode maps a document onto a struct tagged with `doc:"..."`. Scalar
// values are converted weakly, so "7" decodes into an int field.
func Decode(doc Document, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "doc",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(doc))
}

func copyDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case Document:
		return copyDocument(t)
	case map[string]any:
		return map[string]any(copyDocument(t))
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = map[string]any(copyDocument(t[i]))
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	default:
		return v
	}
}

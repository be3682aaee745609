package docstore

import "sort"

type pendingWrite struct {
	doc     Document
	deleted bool
}

// Txn is the handle passed to RunTransaction. Reads observe the
// transaction's own uncommitted writes.
type Txn struct {
	store  *Store
	writes map[string]map[string]*pendingWrite
}

func (t *Txn) Get(collection, id string) (Document, bool) {
	if w, ok := t.writes[collection][id]; ok {
		if w.deleted {
			return nil, false
		}
		return copyDocument(w.doc), true
	}
	doc, ok := t.store.collections[collection][id]
	if !ok {
		return nil, false
	}
	return copyDocument(doc), true
}

func (t *Txn) Set(collection, id string, doc Document) {
	t.pending(collection)[id] = &pendingWrite{doc: copyDocument(doc)}
}

func (t *Txn) Update(collection, id string, fields Document) error {
	doc, ok := t.Get(collection, id)
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = copyValue(v)
	}
	t.pending(collection)[id] = &pendingWrite{doc: doc}
	return nil
}

func (t *Txn) Delete(collection, id string) {
	t.pending(collection)[id] = &pendingWrite{deleted: true}
}

func (t *Txn) pending(collection string) map[string]*pendingWrite {
	if t.writes[collection] == nil {
		t.writes[collection] = make(map[string]*pendingWrite)
	}
	return t.writes[collection]
}

// apply commits the buffered writes; the store lock must be held.
func (t *Txn) apply() []string {
	touched := make([]string, 0, len(t.writes))
	for collection, writes := range t.writes {
		if len(writes) == 0 {
			continue
		}
		for id, w := range writes {
			if w.deleted {
				delete(t.store.collections[collection], id)
				continue
			}
			t.store.put(collection, id, w.doc)
		}
		touched = append(touched, collection)
	}
	sort.Strings(touched)
	return touched
}

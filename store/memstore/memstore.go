// Package memstore is an in-memory implementation of store.Store. It is safe
// for concurrent use and loses its data when the process exits.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-expense-ledger/store"
)

// Store keeps every collection in process memory.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]store.Document

	// Fail, when set, is consulted before every operation and lets tests
	// inject remote failures.
	Fail func(op, collection, id string) error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{collections: make(map[string]map[string]store.Document)}
}

// Collection implements store.Store.
func (s *Store) Collection(name string) store.Collection {
	return &collection{store: s, name: name}
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of documents held by a collection.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[name])
}

type collection struct {
	store *Store
	name  string
}

var _ store.Collection = (*collection)(nil)

func (c *collection) fail(op, id string) error {
	if c.store.Fail == nil {
		return nil
	}
	return store.Wrap(op, c.name, id, c.store.Fail(op, c.name, id))
}

func (c *collection) NewID() string {
	return uuid.NewString()
}

func (c *collection) Get(ctx context.Context, id string) (store.Document, error) {
	if err := c.fail("get", id); err != nil {
		return nil, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	doc, ok := c.store.collections[c.name][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	// copies keep callers from mutating stored state
	return doc.Clone(), nil
}

func (c *collection) GetAll(ctx context.Context, ids []string) (map[string]store.Document, error) {
	if err := c.fail("getAll", ""); err != nil {
		return nil, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	out := make(map[string]store.Document, len(ids))
	for _, id := range ids {
		if doc, ok := c.store.collections[c.name][id]; ok {
			out[id] = doc.Clone()
		}
	}
	return out, nil
}

func (c *collection) Set(ctx context.Context, id string, doc store.Document, opts store.SetOptions) error {
	if err := c.fail("set", id); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs, ok := c.store.collections[c.name]
	if !ok {
		docs = make(map[string]store.Document)
		c.store.collections[c.name] = docs
	}

	if existing, ok := docs[id]; ok && opts.Merge {
		docs[id] = existing.Merge(doc)
		return nil
	}
	docs[id] = doc.Clone()
	return nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	if err := c.fail("delete", id); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	delete(c.store.collections[c.name], id)
	return nil
}

func (c *collection) Query(ctx context.Context, preds ...store.Predicate) ([]store.Document, error) {
	if err := c.fail("query", ""); err != nil {
		return nil, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	ids := make([]string, 0, len(c.store.collections[c.name]))
	for id := range c.store.collections[c.name] {
		ids = append(ids, id)
	}
	// map iteration is random; sort so results are stable across calls
	sort.Strings(ids)

	out := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		doc := c.store.collections[c.name][id]
		if store.Matches(doc, preds...) {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

// Package store defines the narrow document store contract the ledger
// repositories depend on. Implementations live in sub packages: memstore for
// tests and demos, fsstore for Cloud Firestore and sqlstore for a local
// SQL database holding JSON documents.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Document is the attribute map persisted for a single record.
type Document map[string]any

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge applies partial on top of d, leaving attributes missing from partial
// untouched. A nil value in partial is stored as nil.
func (d Document) Merge(partial Document) Document {
	out := d.Clone()
	if out == nil {
		out = Document{}
	}
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// SetOptions controls write semantics.
type SetOptions struct {
	// Merge keeps attributes that are not present in the written document.
	Merge bool
}

// MergeAll is the merge-write option used by every repository write.
var MergeAll = SetOptions{Merge: true}

// Store hands out collection scoped clients.
type Store interface {
	Collection(name string) Collection
	Close() error
}

// Collection is the capability set of a single collection. All methods may
// fail with a *RemoteError.
type Collection interface {
	// NewID returns a fresh document identifier without writing anything.
	NewID() string
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, id string) (Document, error)
	// GetAll returns the existing documents among ids keyed by id. Missing
	// ids are omitted from the result.
	GetAll(ctx context.Context, ids []string) (map[string]Document, error)
	// Set writes doc under id, creating the document when needed.
	Set(ctx context.Context, id string, doc Document, opts SetOptions) error
	// Delete removes the document. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
	// Query returns every document matching all predicates.
	Query(ctx context.Context, preds ...Predicate) ([]Document, error)
}

// ErrNotFound is reported by Get for missing documents.
var ErrNotFound = errors.New("document not found")

// RemoteError wraps a failure reported by the backing store.
type RemoteError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store: %s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Wrap returns nil for a nil err, passes ErrNotFound through untouched and
// wraps anything else into a *RemoteError.
func Wrap(op, collection, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return err
	}
	return &RemoteError{Op: op, Collection: collection, ID: id, Err: err}
}

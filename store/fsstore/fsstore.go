// Package fsstore implements store.Store on top of Cloud Firestore.
package fsstore

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/goliatone/go-expense-ledger/store"
)

// getAllChunk bounds the number of references sent in one batch get.
const getAllChunk = 100

// Store adapts a Firestore client.
type Store struct {
	client *firestore.Client
}

// New wraps an existing Firestore client.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// NewFromApp opens the Firestore client of a Firebase app.
func NewFromApp(ctx context.Context, app *firebase.App) (*Store, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("fsstore: open firestore client: %w", err)
	}
	return New(client), nil
}

// Collection implements store.Store.
func (s *Store) Collection(name string) store.Collection {
	return &collection{client: s.client, ref: s.client.Collection(name), name: name}
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.client.Close()
}

type collection struct {
	client *firestore.Client
	ref    *firestore.CollectionRef
	name   string
}

var _ store.Collection = (*collection)(nil)

func (c *collection) NewID() string {
	return c.ref.NewDoc().ID
}

func (c *collection) Get(ctx context.Context, id string) (store.Document, error) {
	snap, err := c.ref.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, store.ErrNotFound
		}
		return nil, store.Wrap("get", c.name, id, err)
	}
	return store.Document(snap.Data()), nil
}

func (c *collection) GetAll(ctx context.Context, ids []string) (map[string]store.Document, error) {
	out := make(map[string]store.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(ids); start += getAllChunk {
		end := min(start+getAllChunk, len(ids))
		chunk := ids[start:end]

		g.Go(func() error {
			refs := make([]*firestore.DocumentRef, len(chunk))
			for i, id := range chunk {
				refs[i] = c.ref.Doc(id)
			}
			snaps, err := c.client.GetAll(gctx, refs)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, snap := range snaps {
				if snap.Exists() {
					out[snap.Ref.ID] = store.Document(snap.Data())
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, store.Wrap("getAll", c.name, "", err)
	}
	return out, nil
}

func (c *collection) Set(ctx context.Context, id string, doc store.Document, opts store.SetOptions) error {
	data := map[string]interface{}(doc)
	var err error
	if opts.Merge {
		_, err = c.ref.Doc(id).Set(ctx, data, firestore.MergeAll)
	} else {
		_, err = c.ref.Doc(id).Set(ctx, data)
	}
	return store.Wrap("set", c.name, id, err)
}

func (c *collection) Delete(ctx context.Context, id string) error {
	_, err := c.ref.Doc(id).Delete(ctx)
	return store.Wrap("delete", c.name, id, err)
}

func (c *collection) Query(ctx context.Context, preds ...store.Predicate) ([]store.Document, error) {
	q := c.ref.Query
	for _, p := range preds {
		q = q.Where(p.Field, string(p.Op), p.Value)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, store.Wrap("query", c.name, "", err)
	}

	out := make([]store.Document, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, store.Document(snap.Data()))
	}
	return out, nil
}

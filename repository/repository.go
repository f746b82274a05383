// Package repository implements the ledger's repository functions on top of
// a store.Store. Every write is a merge-write, every remote failure surfaces
// as a *domain.PersistenceError and caller input is validated before the
// store is touched.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/goliatone/go-expense-ledger/cache"
	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/store"
)

// Collection names used in the document store.
const (
	CollectionUsers        = "users"
	CollectionAllowedUsers = "allowedUsers"
	CollectionFields       = "fields"
	CollectionTransactions = "transactions"
)

type options struct {
	logger   *zap.Logger
	now      func() time.Time
	profiles cache.CacheService
	keys     cache.KeySerializer
}

// Option configures a repository.
type Option func(*options)

// WithLogger sets the logger used for write and failure events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithProfileCache routes author lookups through a read-through cache.
func WithProfileCache(svc cache.CacheService, keys cache.KeySerializer) Option {
	return func(o *options) {
		o.profiles = svc
		o.keys = keys
		if o.keys == nil {
			o.keys = cache.NewDefaultKeySerializer()
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// base carries the collection handle shared by every repository.
type base struct {
	options
	name string
	coll store.Collection
}

func newBase(st store.Store, name string, opts []Option) base {
	o := newOptions(opts)
	o.logger = o.logger.With(zap.String("collection", name))
	return base{options: o, name: name, coll: st.Collection(name)}
}

func (b base) timestamp() time.Time {
	return b.now().UTC()
}

func (b base) write(ctx context.Context, id string, doc store.Document) error {
	if err := b.coll.Set(ctx, id, doc, store.MergeAll); err != nil {
		b.logger.Warn("write failed", zap.String("id", id), zap.Error(err))
		return b.persistenceError("set", id, err)
	}
	b.logger.Debug("document written", zap.String("id", id))
	return nil
}

func (b base) get(ctx context.Context, id string) (store.Document, error) {
	doc, err := b.coll.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s %s: %w", b.name, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, b.persistenceError("get", id, err)
	}
	return doc, nil
}

func (b base) query(ctx context.Context, preds ...store.Predicate) ([]store.Document, error) {
	docs, err := b.coll.Query(ctx, preds...)
	if err != nil {
		b.logger.Warn("query failed", zap.String("predicates", fmt.Sprint(preds)), zap.Error(err))
		return nil, b.persistenceError("query", "", err)
	}
	return docs, nil
}

func (b base) delete(ctx context.Context, id string) error {
	if err := b.coll.Delete(ctx, id); err != nil {
		b.logger.Warn("delete failed", zap.String("id", id), zap.Error(err))
		return b.persistenceError("delete", id, err)
	}
	b.logger.Debug("document deleted", zap.String("id", id))
	return nil
}

func (b base) persistenceError(op, id string, err error) error {
	return &domain.PersistenceError{Op: op, Collection: b.name, ID: id, Err: err}
}

func requireID(entity, id string) error {
	if strings.TrimSpace(id) == "" {
		return &domain.ValidationError{
			Entity: entity,
			Err:    validation.Errors{"id": errors.New("id is required")},
		}
	}
	return nil
}

func requirePrincipal(actor domain.Principal) error {
	if actor.UID == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}

package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-expense-ledger/internal/cacheinfra"
)

// ErrNotFound marks a record that does not exist at the source. Fetch
// functions return it (possibly wrapped) so the miss can be cached.
var ErrNotFound = cacheinfra.ErrNotFound

// ErrInvalidResultType is returned when a cached value does not have the
// type the caller asked for.
var ErrInvalidResultType = errors.New("cache: invalid result type")

// KeySerializer builds a cache key from an operation name and its arguments.
// Equal arguments must always produce equal keys.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn loads a single value from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// BatchFetchFn loads the values for ids. Ids without a record are left out
// of the returned map.
type BatchFetchFn[T any] func(ctx context.Context, ids []string) (map[string]T, error)

// KeyFn maps a record id to its cache key.
type KeyFn = func(id string) string

// CacheService exposes the read-through operations the repositories need.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error)
	GetOrFetchBatch(ctx context.Context, ids []string, keyFn KeyFn, fetchFn func(context.Context, []string) (map[string]any, error)) (map[string]any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// GetOrFetch is the typed form of CacheService.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	value, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T", ErrInvalidResultType, key, result)
	}
	return value, nil
}

// GetOrFetchBatch is the typed form of CacheService.GetOrFetchBatch.
func GetOrFetchBatch[T any](ctx context.Context, service CacheService, ids []string, keyFn KeyFn, fetchFn BatchFetchFn[T]) (map[string]T, error) {
	raw, err := service.GetOrFetchBatch(ctx, ids, keyFn, func(ctx context.Context, ids []string) (map[string]any, error) {
		res, err := fetchFn(ctx, ids)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(res))
		for id, v := range res {
			out[id] = v
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]T, len(raw))
	for id, v := range raw {
		if v == nil {
			var zero T
			out[id] = zero
			continue
		}
		value, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("%w: id %q holds %T", ErrInvalidResultType, id, v)
		}
		out[id] = value
	}
	return out, nil
}

package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// ErrNotFound is returned by fetch functions for records that do not exist
// upstream. With MissingRecordStorage enabled the miss itself is cached.
var ErrNotFound = errors.New("cache: record not found")

// Config holds the sturdyc client settings.
type Config struct {
	// Capacity is the maximum number of entries the cache can store.
	Capacity int

	// NumShards splits the cache for concurrent access. Default: 256
	NumShards int

	// TTL is the default time-to-live for cached entries.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when a shard is full.
	EvictionPercentage int

	// EarlyRefresh refreshes hot entries in the background before they
	// expire. Nil disables it.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage caches misses so that unknown ids do not hit the
	// store on every lookup.
	MissingRecordStorage bool

	// EvictionInterval sets how often expired entries are swept. Zero keeps
	// the sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig mirrors sturdyc.WithEarlyRefreshes.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig sizes the cache for user profiles: small, short lived and
// with misses remembered.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: true,
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EarlyRefresh),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
}

// Validate checks that no refresh window is negative.
func (c EarlyRefreshConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxAsyncRefreshTime, validation.Min(c.MinAsyncRefreshTime)),
		validation.Field(&c.SyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&c.RetryBaseDelay, validation.Min(time.Duration(0))),
	)
}

func (c Config) options() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}
	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// SturdycService is the read-through cache backed by a sturdyc client.
type SturdycService struct {
	client *sturdyc.Client[any]
}

// NewSturdycService validates cfg and builds the client.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.options()...,
	)
	return &SturdycService{client: client}, nil
}

// GetOrFetch returns the cached value for key or calls fetchFn once for
// all concurrent callers of the same key.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	v, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		v, err := fetchFn(ctx)
		if err != nil {
			// sturdyc type-asserts the value even on error; a nil interface
			// would turn err into sturdyc.ErrInvalidType.
			return struct{}{}, toSturdyc(err)
		}
		return v, nil
	})
	if err != nil {
		return nil, fromSturdyc(err)
	}
	return v, nil
}

// GetOrFetchBatch serves ids from the cache and calls fetchFn with only the
// ids that are missing. Ids absent from the fetch result are left out of
// the returned map.
func (s *SturdycService) GetOrFetchBatch(ctx context.Context, ids []string, keyFn func(string) string, fetchFn func(context.Context, []string) (map[string]any, error)) (map[string]any, error) {
	if len(ids) == 0 {
		return map[string]any{}, nil
	}
	res, err := s.client.GetOrFetchBatch(ctx, ids, keyFn, func(ctx context.Context, ids []string) (map[string]any, error) {
		res, err := fetchFn(ctx, ids)
		return res, toSturdyc(err)
	})
	return res, fromSturdyc(err)
}

// Delete removes a single entry.
func (s *SturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *SturdycService) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Size reports the number of cached entries.
func (s *SturdycService) Size() int {
	return s.client.Size()
}

func toSturdyc(err error) error {
	if errors.Is(err, ErrNotFound) {
		return sturdyc.ErrNotFound
	}
	return err
}

func fromSturdyc(err error) error {
	if errors.Is(err, sturdyc.ErrNotFound) || errors.Is(err, sturdyc.ErrMissingRecord) {
		return ErrNotFound
	}
	return err
}

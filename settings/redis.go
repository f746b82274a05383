package settings

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the preference hashes: <prefix>:<owner>.
const DefaultRedisPrefix = "ledger:settings"

const (
	fieldMode  = "mode"
	fieldColor = "color"
)

// RedisStore keeps each owner's preferences in a hash.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore uses client with the given key prefix. The caller owns the
// client and closes it.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(owner string) string {
	return s.prefix + ":" + owner
}

func (s *RedisStore) Load(ctx context.Context, owner string) (Preferences, error) {
	values, err := s.client.HGetAll(ctx, s.key(owner)).Result()
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return Preferences{
		Mode:  Mode(values[fieldMode]),
		Color: values[fieldColor],
	}.WithDefaults(), nil
}

func (s *RedisStore) Save(ctx context.Context, owner string, p Preferences) (Preferences, error) {
	p, err := prepare(p)
	if err != nil {
		return Preferences{}, err
	}
	if err := s.client.HSet(ctx, s.key(owner), fieldMode, string(p.Mode), fieldColor, p.Color).Err(); err != nil {
		return Preferences{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return p, nil
}

func (s *RedisStore) Clear(ctx context.Context, owner string) error {
	if err := s.client.Del(ctx, s.key(owner)).Err(); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}

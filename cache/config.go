package cache

import (
	"github.com/goliatone/go-expense-ledger/internal/cacheinfra"
)

// Config exposes the sturdyc tunables to consumers of the cache package.
type Config = cacheinfra.Config

// EarlyRefreshConfig mirrors the sturdyc early refresh options.
type EarlyRefreshConfig = cacheinfra.EarlyRefreshConfig

// DefaultConfig returns the profile cache defaults.
func DefaultConfig() Config {
	return cacheinfra.DefaultConfig()
}

// NewCacheService builds the default sturdyc backed service.
func NewCacheService(cfg Config) (CacheService, error) {
	svc, err := cacheinfra.NewSturdycService(cfg)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

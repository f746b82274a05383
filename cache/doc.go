// Package cache provides the read-through cache contract used by the
// repositories and the key serializer shared with the query cache.
//
// # Overview
//
//   - CacheService: read-through operations for single keys and id batches
//   - KeySerializer: builds stable keys from an operation name and arguments
//
// The default service is backed by sturdyc. The repositories use it for the
// author join of transaction lists: every distinct author id is resolved
// through one GetOrFetchBatch call, so a list of n transactions written by
// k people costs at most one batch read of k profiles, and none when the
// profiles are already cached.
//
//	profiles, err := cache.GetOrFetchBatch(ctx, svc, authorIDs,
//		func(id string) string { return serializer.SerializeKey("users", id) },
//		func(ctx context.Context, ids []string) (map[string]domain.User, error) {
//			return users.GetMany(ctx, ids)
//		})
//
// # Keys
//
// Keys are the method name followed by the serialized arguments, joined with
// KeySeparator:
//
//	serializer := cache.NewDefaultKeySerializer()
//	serializer.SerializeKey("ListTransactions", "u1", false) // ListTransactions::u1::false
//
// Basic values print as themselves, timestamps as RFC 3339 in UTC, slices
// element by element, and maps or structs as JSON. Function arguments are
// keyed by pointer and are only stable within one process.
//
// # Missing records
//
// Fetch functions return ErrNotFound for ids that do not exist. With
// MissingRecordStorage enabled the miss is cached as well, so unknown author
// ids do not reach the store on every list.
package cache

// Package querycache keeps the results of keyed reads in memory and
// refreshes them in the background.
//
// Each entry is identified by a key built from the operation name and its
// arguments. Read never blocks: it returns whatever the entry holds and
// starts a fetch when the value is missing, invalidated or older than the
// stale time. Fetch is the blocking form used by request handlers.
//
//	client := querycache.New(querycache.Config{StaleTime: 30 * time.Second})
//	queries := querycache.NewQueries(keys, txRepo, fieldRepo, userRepo, allowedRepo)
//
//	st := querycache.Read(ctx, client, queries.Transactions(principal))
//	if st.Status == querycache.StatusLoading {
//		// no value yet
//	}
//
// After a successful write the caller invalidates the affected tag. The
// call returns once the refetch has settled, so the next Read observes the
// write:
//
//	if _, err := txRepo.CreateExpense(ctx, principal, in); err == nil {
//		_ = client.InvalidateTag(ctx, querycache.TagTransactions)
//	}
//
// # Errors
//
// A failed fetch never discards the previous value. The entry reports
// StatusError together with the old Data until a later fetch succeeds.
// Failures are isolated per key.
//
// # Ordering
//
// Per key the newest started fetch wins. A slower, older fetch that settles
// afterwards is dropped and does not reach subscribers.
package querycache

package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/store/memstore"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// opRecorder counts store operations per collection and can fail selected ones.
type opRecorder struct {
	mu    sync.Mutex
	ops   map[string]int
	fail  map[string]error
	store *memstore.Store
}

func newRecordedStore(t *testing.T) *opRecorder {
	t.Helper()
	rec := &opRecorder{
		ops:   map[string]int{},
		fail:  map[string]error{},
		store: memstore.New(),
	}
	rec.store.Fail = func(op, collection, id string) error {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.ops[collection+"."+op]++
		return rec.fail[collection+"."+op]
	}
	return rec
}

func (r *opRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[key]
}

func (r *opRecorder) failOn(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[key] = err
}

var errUnavailable = errors.New("permission denied")

var (
	alice = domain.Principal{UID: "alice", Email: "alice@example.com"}
	bob   = domain.Principal{UID: "bob", Email: "bob@example.com"}
	admin = domain.Principal{UID: "root", Email: "root@example.com", IsAdmin: true}
	owner = domain.Principal{UID: "owner", Email: "owner@example.com", IsAdmin: true, IsOwner: true}
)

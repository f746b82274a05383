package fsstore

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-expense-ledger/store"
)

// These tests talk to the Firestore emulator and are skipped without it:
//
//	gcloud emulators firestore start --host-port=localhost:8088
//	FIRESTORE_EMULATOR_HOST=localhost:8088 go test ./store/fsstore/...
func newEmulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "demo-expense-ledger")
	require.NoError(t, err)

	s := New(client)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Emulator_RoundTrip(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()
	name := "transactions_" + time.Now().Format("150405.000000")
	c := s.Collection(name)

	id := c.NewID()
	require.NotEmpty(t, id)

	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Set(ctx, id, store.Document{"authorId": "a", "type": "expense", "price": 12.5, "date": date}, store.MergeAll))
	require.NoError(t, c.Set(ctx, id, store.Document{"description": "Taxi", "author": nil}, store.MergeAll))

	doc, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Taxi", doc.String("description"))
	assert.Equal(t, 12.5, doc.Float("price"))
	assert.True(t, doc.Time("date").Equal(date))

	docs, err := c.Query(ctx, store.Where("authorId", "a"), store.Where("type", "expense"))
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	all, err := c.GetAll(ctx, []string{id, "missing"})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, c.Delete(ctx, id))
	require.NoError(t, c.Delete(ctx, id))

	_, err = c.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

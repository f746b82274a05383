package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-expense-ledger/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	s, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
}

func TestCollection_SetMergeAndOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := s.Collection("fields")

	require.NoError(t, c.Set(ctx, "f1", store.Document{"fieldId": "f1", "name": "Food"}, store.MergeAll))
	require.NoError(t, c.Set(ctx, "f1", store.Document{"updated": "2024-05-01T00:00:00Z"}, store.MergeAll))

	doc, err := c.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Food", doc.String("name"))
	assert.Equal(t, "2024-05-01T00:00:00Z", doc.String("updated"))

	require.NoError(t, c.Set(ctx, "f1", store.Document{"fieldId": "f1"}, store.SetOptions{}))
	doc, err = c.Get(ctx, "f1")
	require.NoError(t, err)
	_, hasName := doc["name"]
	assert.False(t, hasName)
}

func TestCollection_GetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Collection("users").Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCollection_CollectionsAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Collection("a").Set(ctx, "x", store.Document{"v": 1}, store.MergeAll))

	_, err := s.Collection("b").Get(ctx, "x")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCollection_QueryDecodesAndFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := s.Collection("transactions")

	may := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	june := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Set(ctx, "t1", store.Document{"authorId": "a", "type": "expense", "price": 10.0, "date": may}, store.MergeAll))
	require.NoError(t, c.Set(ctx, "t2", store.Document{"authorId": "a", "type": "income", "price": 99.5, "date": june}, store.MergeAll))
	require.NoError(t, c.Set(ctx, "t3", store.Document{"authorId": "b", "type": "expense", "price": 3.0, "date": june}, store.MergeAll))

	docs, err := c.Query(ctx, store.Where("authorId", "a"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 10.0, docs[0].Float("price"))
	assert.True(t, docs[0].Time("date").Equal(may))

	docs, err = c.Query(ctx, store.Predicate{Field: "date", Op: store.OpGreater, Value: may})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = c.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestCollection_GetAllAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := s.Collection("users")

	require.NoError(t, c.Set(ctx, "u1", store.Document{"uid": "u1"}, store.MergeAll))
	require.NoError(t, c.Set(ctx, "u2", store.Document{"uid": "u2"}, store.MergeAll))

	docs, err := c.GetAll(ctx, []string{"u1", "u2", "ghost"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, "u2", docs["u2"].String("uid"))

	empty, err := c.GetAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, c.Delete(ctx, "u1"))
	require.NoError(t, c.Delete(ctx, "u1"))
	_, err = c.Get(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

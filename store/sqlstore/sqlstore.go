// Package sqlstore implements store.Store on a relational database through
// bun. Every document is one JSON row keyed by (collection, id), which keeps
// the merge-write and predicate semantics of the hosted document store while
// running against a local SQLite file or a Postgres instance.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-expense-ledger/store"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	Collection string    `bun:"collection,pk"`
	ID         string    `bun:"id,pk"`
	Data       string    `bun:"data,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

// Store keeps documents in a single table.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

// Open connects to driver/dsn and creates the documents table if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}

	var db *bun.DB
	switch driver {
	case DriverSQLite:
		// a single connection avoids SQLITE_BUSY between writers
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb.Close()
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the documents table.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*documentRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: create documents table: %w", err)
	}
	return nil
}

// Collection implements store.Store.
func (s *Store) Collection(name string) store.Collection {
	return &collection{store: s, name: name}
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

type collection struct {
	store *Store
	name  string
}

var _ store.Collection = (*collection)(nil)

func (c *collection) NewID() string {
	return uuid.NewString()
}

func (c *collection) Get(ctx context.Context, id string) (store.Document, error) {
	doc, err := c.load(ctx, c.store.db, id)
	if err != nil {
		return nil, store.Wrap("get", c.name, id, err)
	}
	return doc, nil
}

func (c *collection) load(ctx context.Context, db bun.IDB, id string) (store.Document, error) {
	var row documentRow
	err := db.NewSelect().
		Model(&row).
		Where("collection = ?", c.name).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(row.Data)
}

func (c *collection) GetAll(ctx context.Context, ids []string) (map[string]store.Document, error) {
	out := make(map[string]store.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []documentRow
	err := c.store.db.NewSelect().
		Model(&rows).
		Where("collection = ?", c.name).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, store.Wrap("getAll", c.name, "", err)
	}

	for _, row := range rows {
		doc, err := decode(row.Data)
		if err != nil {
			return nil, store.Wrap("getAll", c.name, row.ID, err)
		}
		out[row.ID] = doc
	}
	return out, nil
}

func (c *collection) Set(ctx context.Context, id string, doc store.Document, opts store.SetOptions) error {
	err := c.store.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		next := doc
		if opts.Merge {
			existing, err := c.load(ctx, tx, id)
			switch {
			case err == nil:
				next = existing.Merge(doc)
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}

		row := &documentRow{
			Collection: c.name,
			ID:         id,
			Data:       string(data),
			UpdatedAt:  c.store.now().UTC(),
		}
		_, err = tx.NewInsert().
			Model(row).
			On("CONFLICT (collection, id) DO UPDATE").
			Set("data = EXCLUDED.data").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
	return store.Wrap("set", c.name, id, err)
}

func (c *collection) Delete(ctx context.Context, id string) error {
	_, err := c.store.db.NewDelete().
		Model((*documentRow)(nil)).
		Where("collection = ?", c.name).
		Where("id = ?", id).
		Exec(ctx)
	return store.Wrap("delete", c.name, id, err)
}

// Query loads the collection and filters in process; predicates are applied
// to the decoded JSON exactly like memstore does.
func (c *collection) Query(ctx context.Context, preds ...store.Predicate) ([]store.Document, error) {
	var rows []documentRow
	err := c.store.db.NewSelect().
		Model(&rows).
		Where("collection = ?", c.name).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.Wrap("query", c.name, "", err)
	}

	out := make([]store.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decode(row.Data)
		if err != nil {
			return nil, store.Wrap("query", c.name, row.ID, err)
		}
		if store.Matches(doc, preds...) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func decode(data string) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

package repository

import (
	"context"
	"sort"

	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/store"
)

// Fields manages transaction categories.
type Fields struct {
	base
}

// NewFields builds the fields repository.
func NewFields(st store.Store, opts ...Option) *Fields {
	return &Fields{base: newBase(st, CollectionFields, opts)}
}

// Create stores a new field under a fresh id.
func (r *Fields) Create(ctx context.Context, in domain.FieldInput) (domain.Field, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Field{}, err
	}

	field := domain.Field{
		FieldID: r.coll.NewID(),
		Name:    in.Name,
		Created: r.timestamp(),
	}
	doc := store.Document{
		attrFieldID: field.FieldID,
		attrName:    field.Name,
		attrCreated: field.Created,
	}
	if err := r.write(ctx, field.FieldID, doc); err != nil {
		return domain.Field{}, err
	}
	return field, nil
}

// Update renames a field and returns the stored result. A missing id is
// created by the merge-write.
func (r *Fields) Update(ctx context.Context, id string, in domain.FieldInput) (domain.Field, error) {
	if err := requireID("field", id); err != nil {
		return domain.Field{}, err
	}
	in = in.Normalize()
	updated := r.timestamp()
	field := domain.Field{FieldID: id, Name: in.Name, Updated: &updated}
	if err := field.Validate(); err != nil {
		return domain.Field{}, err
	}

	doc := store.Document{
		attrFieldID: id,
		attrName:    in.Name,
		attrUpdated: updated,
	}
	if err := r.write(ctx, id, doc); err != nil {
		return domain.Field{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes a field. Transactions keep their field id.
func (r *Fields) Delete(ctx context.Context, id string) error {
	if err := requireID("field", id); err != nil {
		return err
	}
	return r.delete(ctx, id)
}

// Get loads a single field.
func (r *Fields) Get(ctx context.Context, id string) (domain.Field, error) {
	if err := requireID("field", id); err != nil {
		return domain.Field{}, err
	}
	doc, err := r.get(ctx, id)
	if err != nil {
		return domain.Field{}, err
	}
	return fieldFromDocument(doc), nil
}

// List returns every field ordered by name.
func (r *Fields) List(ctx context.Context) ([]domain.Field, error) {
	docs, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	fields := make([]domain.Field, 0, len(docs))
	for _, doc := range docs {
		fields = append(fields, fieldFromDocument(doc))
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})
	return fields, nil
}

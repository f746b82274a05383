package repository

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/store"
)

// Transactions manages income and expense entries.
type Transactions struct {
	base
	users *Users
}

// NewTransactions builds the transactions repository. users resolves the
// author of listed transactions.
func NewTransactions(st store.Store, users *Users, opts ...Option) *Transactions {
	return &Transactions{base: newBase(st, CollectionTransactions, opts), users: users}
}

// Create records a transaction authored by actor. The type is fixed here
// and never changes afterwards.
func (r *Transactions) Create(ctx context.Context, actor domain.Principal, typ domain.TransactionType, in domain.TransactionInput) (domain.Transaction, error) {
	if err := requirePrincipal(actor); err != nil {
		return domain.Transaction{}, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	if !typ.Valid() {
		return domain.Transaction{}, &domain.ValidationError{Entity: "transaction", Err: errInvalidType(typ)}
	}

	tx := domain.Transaction{
		TransactionID: r.coll.NewID(),
		AuthorID:      actor.UID,
		Type:          typ,
		Price:         in.Price,
		Description:   in.Description,
		Date:          in.Date.UTC(),
		FieldID:       in.FieldID,
		Created:       r.timestamp(),
	}

	doc := transactionInputDocument(in)
	doc[attrTransactionID] = tx.TransactionID
	doc[attrAuthorID] = tx.AuthorID
	doc[attrType] = string(tx.Type)
	doc[attrCreated] = tx.Created

	if err := r.write(ctx, tx.TransactionID, doc); err != nil {
		return domain.Transaction{}, err
	}
	r.logger.Debug("transaction created",
		zap.String("id", tx.TransactionID),
		zap.String("type", tx.Type.String()),
		zap.String("author", tx.AuthorID),
	)
	return tx, nil
}

// CreateIncome records an income transaction.
func (r *Transactions) CreateIncome(ctx context.Context, actor domain.Principal, in domain.TransactionInput) (domain.Transaction, error) {
	return r.Create(ctx, actor, domain.Income, in)
}

// CreateExpense records an expense transaction.
func (r *Transactions) CreateExpense(ctx context.Context, actor domain.Principal, in domain.TransactionInput) (domain.Transaction, error) {
	return r.Create(ctx, actor, domain.Expense, in)
}

// Update rewrites the editable attributes of a transaction and clears any
// author snapshot. The id, author and type are kept. A missing id is
// created for actor, which then needs a type.
func (r *Transactions) Update(ctx context.Context, actor domain.Principal, id string, in domain.TransactionInput) (domain.Transaction, error) {
	return r.update(ctx, actor, id, "", in)
}

// UpdateIncome is Update for an income transaction.
func (r *Transactions) UpdateIncome(ctx context.Context, actor domain.Principal, id string, in domain.TransactionInput) (domain.Transaction, error) {
	return r.update(ctx, actor, id, domain.Income, in)
}

// UpdateExpense is Update for an expense transaction.
func (r *Transactions) UpdateExpense(ctx context.Context, actor domain.Principal, id string, in domain.TransactionInput) (domain.Transaction, error) {
	return r.update(ctx, actor, id, domain.Expense, in)
}

func (r *Transactions) update(ctx context.Context, actor domain.Principal, id string, typ domain.TransactionType, in domain.TransactionInput) (domain.Transaction, error) {
	if err := requireID("transaction", id); err != nil {
		return domain.Transaction{}, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	if typ != "" && !typ.Valid() {
		return domain.Transaction{}, &domain.ValidationError{Entity: "transaction", Err: errInvalidType(typ)}
	}

	updated := r.timestamp()
	tx := domain.Transaction{TransactionID: id}
	created := false
	doc, err := r.get(ctx, id)
	switch {
	case err == nil:
		tx = transactionFromDocument(doc)
		tx.TransactionID = id
	case errors.Is(err, domain.ErrNotFound):
		if err := requirePrincipal(actor); err != nil {
			return domain.Transaction{}, err
		}
		tx.AuthorID = actor.UID
		tx.Created = updated
		created = true
	default:
		return domain.Transaction{}, err
	}
	if typ != "" {
		tx.Type = typ
	}
	tx.Price, tx.Description, tx.Date, tx.FieldID = in.Price, in.Description, in.Date.UTC(), in.FieldID
	tx.Updated = &updated
	if err := tx.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	out := transactionInputDocument(in)
	out[attrTransactionID] = id
	out[attrAuthor] = nil
	out[attrUpdated] = updated
	out[attrType] = string(tx.Type)
	if created {
		out[attrAuthorID] = tx.AuthorID
		out[attrCreated] = tx.Created
	}

	if err := r.write(ctx, id, out); err != nil {
		return domain.Transaction{}, err
	}
	r.logger.Debug("transaction updated", zap.String("id", id), zap.Bool("created", created))
	return r.Get(ctx, id)
}

// Delete removes a transaction. Deleting a missing id is not an error.
func (r *Transactions) Delete(ctx context.Context, id string) error {
	if err := requireID("transaction", id); err != nil {
		return err
	}
	return r.delete(ctx, id)
}

// Get loads a single transaction with its author.
func (r *Transactions) Get(ctx context.Context, id string) (domain.Transaction, error) {
	if err := requireID("transaction", id); err != nil {
		return domain.Transaction{}, err
	}
	doc, err := r.get(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	txs := []domain.Transaction{transactionFromDocument(doc)}
	if err := r.joinAuthors(ctx, txs); err != nil {
		return domain.Transaction{}, err
	}
	return txs[0], nil
}

// List returns the transactions visible to actor: all of them for an
// admin, otherwise only the actor's own.
func (r *Transactions) List(ctx context.Context, actor domain.Principal) ([]domain.Transaction, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	var preds []store.Predicate
	if !actor.IsAdmin {
		preds = append(preds, store.Where(attrAuthorID, actor.UID))
	}
	return r.list(ctx, preds...)
}

// ListIncome returns the actor's own income transactions.
func (r *Transactions) ListIncome(ctx context.Context, actor domain.Principal) ([]domain.Transaction, error) {
	return r.listByType(ctx, actor, domain.Income)
}

// ListExpense returns the actor's own expense transactions.
func (r *Transactions) ListExpense(ctx context.Context, actor domain.Principal) ([]domain.Transaction, error) {
	return r.listByType(ctx, actor, domain.Expense)
}

func (r *Transactions) listByType(ctx context.Context, actor domain.Principal, typ domain.TransactionType) ([]domain.Transaction, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	return r.list(ctx,
		store.Where(attrType, string(typ)),
		store.Where(attrAuthorID, actor.UID),
	)
}

func (r *Transactions) list(ctx context.Context, preds ...store.Predicate) ([]domain.Transaction, error) {
	docs, err := r.query(ctx, preds...)
	if err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, len(docs))
	for _, doc := range docs {
		txs = append(txs, transactionFromDocument(doc))
	}
	if err := r.joinAuthors(ctx, txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// joinAuthors attaches author profiles with a single lookup for all the
// distinct author ids of txs. Unknown authors are left nil.
func (r *Transactions) joinAuthors(ctx context.Context, txs []domain.Transaction) error {
	if r.users == nil || len(txs) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(txs))
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		if tx.AuthorID == "" {
			continue
		}
		if _, ok := seen[tx.AuthorID]; ok {
			continue
		}
		seen[tx.AuthorID] = struct{}{}
		ids = append(ids, tx.AuthorID)
	}
	if len(ids) == 0 {
		return nil
	}

	profiles, err := r.users.Profiles(ctx, ids)
	if err != nil {
		return err
	}
	for i := range txs {
		if author, ok := profiles[txs[i].AuthorID]; ok {
			txs[i].Author = &author
		}
	}
	return nil
}

func errInvalidType(typ domain.TransactionType) error {
	return validation.Errors{attrType: fmt.Errorf("unknown transaction type %q", string(typ))}
}

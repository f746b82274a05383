package repository

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/store"
)

// AllowedUsers manages the sign-in allow list.
type AllowedUsers struct {
	base
}

// NewAllowedUsers builds the allowed-users repository.
func NewAllowedUsers(st store.Store, opts ...Option) *AllowedUsers {
	return &AllowedUsers{base: newBase(st, CollectionAllowedUsers, opts)}
}

// Exists reports whether email is on the allow list. Emails are compared
// trimmed and lower-cased.
func (r *AllowedUsers) Exists(ctx context.Context, email string) (bool, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	docs, err := r.query(ctx, store.Where(attrEmail, email))
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// Add admits a new email. An already present email yields a
// *domain.DuplicateError and nothing is written.
func (r *AllowedUsers) Add(ctx context.Context, in domain.AllowedUserInput) (domain.AllowedUser, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.AllowedUser{}, err
	}

	exists, err := r.Exists(ctx, in.Email)
	if err != nil {
		return domain.AllowedUser{}, err
	}
	if exists {
		return domain.AllowedUser{}, &domain.DuplicateError{Entity: "allowed user", Key: in.Email}
	}

	allowed := domain.AllowedUser{
		AllowedUserID: r.coll.NewID(),
		Email:         in.Email,
		Created:       r.timestamp(),
	}
	if err := r.write(ctx, allowed.AllowedUserID, allowedUserDocument(allowed)); err != nil {
		return domain.AllowedUser{}, err
	}
	r.logger.Info("allowed user added", zap.String("id", allowed.AllowedUserID), zap.String("email", allowed.Email))
	return allowed, nil
}

// List returns the allow list, oldest first.
func (r *AllowedUsers) List(ctx context.Context) ([]domain.AllowedUser, error) {
	docs, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AllowedUser, 0, len(docs))
	for _, doc := range docs {
		out = append(out, allowedUserFromDocument(doc))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

// Delete removes an entry. Only the owner may delete, and never the entry
// holding the owner's own email. Deleting a missing id is not an error.
func (r *AllowedUsers) Delete(ctx context.Context, actor domain.Principal, id string) error {
	if err := requirePrincipal(actor); err != nil {
		return err
	}
	if !actor.IsOwner {
		return domain.ErrForbidden
	}
	if err := requireID("allowed user", id); err != nil {
		return err
	}

	doc, err := r.get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	if domain.NormalizeEmail(doc.String(attrEmail)) == domain.NormalizeEmail(actor.Email) {
		return domain.ErrForbidden
	}

	if err := r.delete(ctx, id); err != nil {
		return err
	}
	r.logger.Info("allowed user removed", zap.String("id", id), zap.String("by", actor.UID))
	return nil
}

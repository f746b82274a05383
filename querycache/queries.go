package querycache

import (
	"context"

	"github.com/goliatone/go-expense-ledger/cache"
	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/repository"
)

// Tags group the entries invalidated together after a write.
const (
	TagTransactions = "transactions"
	TagFields       = "fields"
	TagUsers        = "users"
	TagAllowedUsers = "allowedUsers"
)

// Queries builds the named reads of the ledger.
type Queries struct {
	keys         cache.KeySerializer
	transactions *repository.Transactions
	fields       *repository.Fields
	users        *repository.Users
	allowedUsers *repository.AllowedUsers
}

// NewQueries binds the named reads to their repositories.
func NewQueries(keys cache.KeySerializer, transactions *repository.Transactions, fields *repository.Fields, users *repository.Users, allowedUsers *repository.AllowedUsers) *Queries {
	if keys == nil {
		keys = cache.NewDefaultKeySerializer()
	}
	return &Queries{
		keys:         keys,
		transactions: transactions,
		fields:       fields,
		users:        users,
		allowedUsers: allowedUsers,
	}
}

// Transactions lists what p may see. Admin and non-admin principals get
// distinct keys.
func (q *Queries) Transactions(p domain.Principal) Query[[]domain.Transaction] {
	return Query[[]domain.Transaction]{
		Key:  q.keys.SerializeKey("ListTransactions", p.UID, p.IsAdmin),
		Tags: []string{TagTransactions},
		Fetch: func(ctx context.Context) ([]domain.Transaction, error) {
			return q.transactions.List(ctx, p)
		},
	}
}

// Income lists p's income transactions.
func (q *Queries) Income(p domain.Principal) Query[[]domain.Transaction] {
	return Query[[]domain.Transaction]{
		Key:  q.keys.SerializeKey("ListIncome", p.UID),
		Tags: []string{TagTransactions},
		Fetch: func(ctx context.Context) ([]domain.Transaction, error) {
			return q.transactions.ListIncome(ctx, p)
		},
	}
}

// Expense lists p's expense transactions.
func (q *Queries) Expense(p domain.Principal) Query[[]domain.Transaction] {
	return Query[[]domain.Transaction]{
		Key:  q.keys.SerializeKey("ListExpense", p.UID),
		Tags: []string{TagTransactions},
		Fetch: func(ctx context.Context) ([]domain.Transaction, error) {
			return q.transactions.ListExpense(ctx, p)
		},
	}
}

// Fields lists every field.
func (q *Queries) Fields() Query[[]domain.Field] {
	return Query[[]domain.Field]{
		Key:   q.keys.SerializeKey("ListFields"),
		Tags:  []string{TagFields},
		Fetch: q.fields.List,
	}
}

// Users lists every user profile.
func (q *Queries) Users() Query[[]domain.User] {
	return Query[[]domain.User]{
		Key:   q.keys.SerializeKey("ListUsers"),
		Tags:  []string{TagUsers},
		Fetch: q.users.List,
	}
}

// User loads a single profile. It shares the users tag, so an admin toggle
// refreshes it.
func (q *Queries) User(uid string) Query[domain.User] {
	return Query[domain.User]{
		Key:  q.keys.SerializeKey("GetUser", uid),
		Tags: []string{TagUsers},
		Fetch: func(ctx context.Context) (domain.User, error) {
			return q.users.Get(ctx, uid)
		},
	}
}

// AllowedUsers lists the sign-in allow list.
func (q *Queries) AllowedUsers() Query[[]domain.AllowedUser] {
	return Query[[]domain.AllowedUser]{
		Key:   q.keys.SerializeKey("ListAllowedUsers"),
		Tags:  []string{TagAllowedUsers},
		Fetch: q.allowedUsers.List,
	}
}

package repository

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/goliatone/go-expense-ledger/cache"
	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/store"
)

const profileKeyMethod = "UserProfile"

// Users manages user profiles. The document id is the UID.
type Users struct {
	base
}

// NewUsers builds the users repository.
func NewUsers(st store.Store, opts ...Option) *Users {
	return &Users{base: newBase(st, CollectionUsers, opts)}
}

// Get loads a single profile.
func (r *Users) Get(ctx context.Context, uid string) (domain.User, error) {
	if err := requireID("user", uid); err != nil {
		return domain.User{}, err
	}
	doc, err := r.get(ctx, uid)
	if err != nil {
		return domain.User{}, err
	}
	user := userFromDocument(doc)
	if user.UID == "" {
		user.UID = uid
	}
	return user, nil
}

// List returns every profile ordered by email.
func (r *Users) List(ctx context.Context) ([]domain.User, error) {
	docs, err := r.query(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, userFromDocument(doc))
	}
	sort.SliceStable(users, func(i, j int) bool {
		return domain.NormalizeEmail(users[i].Email) < domain.NormalizeEmail(users[j].Email)
	})
	return users, nil
}

// GetMany loads the existing profiles among uids in one batch read.
func (r *Users) GetMany(ctx context.Context, uids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	docs, err := r.coll.GetAll(ctx, uids)
	if err != nil {
		return nil, r.persistenceError("getAll", "", err)
	}
	for id, doc := range docs {
		user := userFromDocument(doc)
		if user.UID == "" {
			user.UID = id
		}
		out[id] = user
	}
	return out, nil
}

// Profiles resolves author profiles for a list of uids. With a profile
// cache configured only uncached ids reach the store.
func (r *Users) Profiles(ctx context.Context, uids []string) (map[string]domain.User, error) {
	if r.profiles == nil {
		return r.GetMany(ctx, uids)
	}
	profiles, err := cache.GetOrFetchBatch[domain.User](ctx, r.profiles, uids, r.profileKey, r.GetMany)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return nil, err
	}
	if profiles == nil {
		profiles = map[string]domain.User{}
	}
	return profiles, nil
}

func (r *Users) profileKey(uid string) string {
	return r.keys.SerializeKey(profileKeyMethod, uid)
}

func (r *Users) forget(ctx context.Context, uid string) {
	if r.profiles == nil {
		return
	}
	if err := r.profiles.Delete(ctx, r.profileKey(uid)); err != nil {
		r.logger.Warn("profile cache delete failed", zap.String("uid", uid), zap.Error(err))
	}
}

// Upsert merge-writes the profile and returns the stored result. Empty
// attributes and zero timestamps are left untouched.
func (r *Users) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	if err := requireID("user", user.UID); err != nil {
		return domain.User{}, err
	}
	if err := r.write(ctx, user.UID, userDocument(user)); err != nil {
		return domain.User{}, err
	}
	r.forget(ctx, user.UID)
	return r.Get(ctx, user.UID)
}

// TouchLastLoggedIn stamps the sign-in time of an existing profile.
func (r *Users) TouchLastLoggedIn(ctx context.Context, uid string) error {
	if err := requireID("user", uid); err != nil {
		return err
	}
	if err := r.write(ctx, uid, store.Document{attrLastLoggedIn: r.timestamp()}); err != nil {
		return err
	}
	r.forget(ctx, uid)
	return nil
}

// SetAdmin grants or revokes the admin flag. Only the owner may do this.
func (r *Users) SetAdmin(ctx context.Context, actor domain.Principal, uid string, admin bool) error {
	if err := requirePrincipal(actor); err != nil {
		return err
	}
	if !actor.IsOwner {
		return domain.ErrForbidden
	}
	if _, err := r.Get(ctx, uid); err != nil {
		return err
	}
	if err := r.write(ctx, uid, store.Document{attrIsAdmin: admin}); err != nil {
		return err
	}
	r.forget(ctx, uid)
	r.logger.Info("admin flag changed", zap.String("uid", uid), zap.Bool("admin", admin), zap.String("by", actor.UID))
	return nil
}

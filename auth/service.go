package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/repository"
)

// Profile values stored for accounts that do not carry their own.
const (
	DefaultDisplayName = "Anonymous"
	DefaultEmail       = "anonymous@email.com"
)

// Option configures a Service.
type Option func(*Service)

// WithOwnerEmail names the owner. The owner skips the allowed-user gate and
// is the only principal allowed to manage it.
func WithOwnerEmail(email string) Option {
	return func(s *Service) {
		s.ownerEmail = email
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time used for missing provider timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultPhotoURL sets the avatar stored for accounts without one.
func WithDefaultPhotoURL(url string) Option {
	return func(s *Service) {
		s.defaultPhoto = url
	}
}

// Service signs identities in against the user and allowed-user records.
type Service struct {
	provider     Provider
	users        *repository.Users
	allowed      *repository.AllowedUsers
	ownerEmail   string
	defaultPhoto string
	logger       *zap.Logger
	now          func() time.Time
}

// NewService builds a Service.
func NewService(provider Provider, users *repository.Users, allowed *repository.AllowedUsers, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		users:    users,
		allowed:  allowed,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OwnerEmail returns the configured owner email.
func (s *Service) OwnerEmail() string {
	return s.ownerEmail
}

// SignIn verifies credential and records the sign-in. A known user gets its
// last sign-in time stamped; an unknown one is created with defaults for
// missing profile values. Emails missing from the allowed users are refused
// with domain.ErrNotAllowed unless they belong to the owner.
func (s *Service) SignIn(ctx context.Context, credential string) (domain.Principal, error) {
	id, err := s.provider.Authenticate(ctx, credential)
	if err != nil {
		return domain.Principal{}, err
	}

	email := id.Email
	if email == "" {
		email = DefaultEmail
	}
	if err := s.gate(ctx, email); err != nil {
		s.logger.Info("sign-in refused", zap.String("uid", id.UID), zap.String("email", email))
		return domain.Principal{}, err
	}

	user, err := s.users.Get(ctx, id.UID)
	switch {
	case err == nil:
		if err := s.users.TouchLastLoggedIn(ctx, id.UID); err != nil {
			return domain.Principal{}, err
		}
	case errors.Is(err, domain.ErrNotFound):
		user, err = s.users.Upsert(ctx, s.newUser(id, email))
		if err != nil {
			return domain.Principal{}, err
		}
		s.logger.Info("user created", zap.String("uid", user.UID))
	default:
		return domain.Principal{}, err
	}

	return user.Principal(s.ownerEmail), nil
}

// Resolve verifies credential and loads the stored profile without
// recording a sign-in. Identities that never signed in are refused with
// domain.ErrUnauthenticated.
func (s *Service) Resolve(ctx context.Context, credential string) (domain.Principal, error) {
	id, err := s.provider.Authenticate(ctx, credential)
	if err != nil {
		return domain.Principal{}, err
	}
	user, err := s.users.Get(ctx, id.UID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Principal{}, fmt.Errorf("%w: user %s has not signed in", domain.ErrUnauthenticated, id.UID)
	}
	if err != nil {
		return domain.Principal{}, err
	}
	return user.Principal(s.ownerEmail), nil
}

func (s *Service) gate(ctx context.Context, email string) error {
	if domain.IsOwnerEmail(email, s.ownerEmail) {
		return nil
	}
	ok, err := s.allowed.Exists(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotAllowed
	}
	return nil
}

func (s *Service) signInTime(id Identity) time.Time {
	if !id.LastSignInAt.IsZero() {
		return id.LastSignInAt
	}
	return s.now()
}

func (s *Service) newUser(id Identity, email string) domain.User {
	u := domain.User{
		UID:          id.UID,
		DisplayName:  id.DisplayName,
		Email:        email,
		PhotoURL:     id.PhotoURL,
		Created:      id.CreatedAt,
		LastLoggedIn: s.signInTime(id),
	}
	if u.DisplayName == "" {
		u.DisplayName = DefaultDisplayName
	}
	if u.PhotoURL == "" {
		u.PhotoURL = s.defaultPhoto
	}
	if u.Created.IsZero() {
		u.Created = s.now()
	}
	return u
}

package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/querycache"
	"github.com/goliatone/go-expense-ledger/settings"
)

// Session holds the principal of a single interactive client. Signing out,
// or a failed sign-in, clears the principal together with its persisted
// preferences and every cached query.
type Session struct {
	svc      *Service
	settings settings.Store
	queries  *querycache.Client
	logger   *zap.Logger

	mu        sync.Mutex
	principal *domain.Principal
	listeners map[uint64]func(*domain.Principal)
	nextID    uint64
}

// NewSession builds a signed-out session. prefs and queries may be nil.
func NewSession(svc *Service, prefs settings.Store, queries *querycache.Client) *Session {
	return &Session{
		svc:       svc,
		settings:  prefs,
		queries:   queries,
		logger:    svc.logger.Named("session"),
		listeners: map[uint64]func(*domain.Principal){},
	}
}

// Principal returns the signed-in principal.
func (s *Session) Principal() (domain.Principal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return domain.Principal{}, false
	}
	return *s.principal, true
}

// OnAuthStateChange registers fn and calls it right away with the current
// principal, then on every change. nil means signed out.
func (s *Session) OnAuthStateChange(fn func(*domain.Principal)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := copyPrincipal(s.principal)
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SignIn signs credential in and makes it the session principal. On
// failure the session ends up signed out.
func (s *Session) SignIn(ctx context.Context, credential string) (domain.Principal, error) {
	p, err := s.svc.SignIn(ctx, credential)
	if err != nil {
		s.logger.Warn("sign-in failed, clearing session", zap.Error(err))
		s.clear(ctx)
		return domain.Principal{}, err
	}
	s.set(&p)
	return p, nil
}

// SignOut clears the principal, its preferences and the query cache.
func (s *Session) SignOut(ctx context.Context) error {
	return s.clear(ctx)
}

func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	prev := s.principal
	s.mu.Unlock()

	var err error
	if prev != nil && s.settings != nil {
		if err = s.settings.Clear(ctx, prev.UID); err != nil {
			s.logger.Warn("failed to clear settings", zap.String("uid", prev.UID), zap.Error(err))
		}
	}
	if s.queries != nil {
		s.queries.Reset()
	}
	s.set(nil)
	return err
}

func (s *Session) set(p *domain.Principal) {
	s.mu.Lock()
	s.principal = copyPrincipal(p)
	listeners := make([]func(*domain.Principal), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	current := copyPrincipal(s.principal)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(copyPrincipal(current))
	}
}

func copyPrincipal(p *domain.Principal) *domain.Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

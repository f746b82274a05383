// Package auth turns identity provider credentials into ledger principals.
//
// Provider verifies a credential. Service signs the identity in: it applies
// the allowed-user gate, upserts the profile and derives the Principal.
// Session keeps the single principal of an interactive client and notifies
// listeners when it changes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
)

// ErrInvalidCredential is returned when a credential cannot be verified.
var ErrInvalidCredential = errors.New("invalid or expired credential")

// Identity is what a provider knows about an authenticated account.
type Identity struct {
	UID          string
	DisplayName  string
	Email        string
	PhotoURL     string
	Anonymous    bool
	CreatedAt    time.Time
	LastSignInAt time.Time
}

// Provider verifies a credential, such as an ID token, and returns the
// identity it belongs to.
type Provider interface {
	Authenticate(ctx context.Context, credential string) (Identity, error)
}

// TokenVerifier is the part of the Firebase Auth client the provider uses.
// *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	GetUser(ctx context.Context, uid string) (*fbauth.UserRecord, error)
}

// FirebaseProvider verifies Firebase ID tokens.
type FirebaseProvider struct {
	client TokenVerifier
}

// NewFirebaseProvider wraps a Firebase Auth client.
func NewFirebaseProvider(client TokenVerifier) *FirebaseProvider {
	return &FirebaseProvider{client: client}
}

// NewFirebaseProviderFromApp gets the Auth client of app.
func NewFirebaseProviderFromApp(ctx context.Context, app *firebase.App) (*FirebaseProvider, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}
	return NewFirebaseProvider(client), nil
}

// Authenticate verifies idToken and loads the account record.
func (p *FirebaseProvider) Authenticate(ctx context.Context, idToken string) (Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return Identity{}, ErrInvalidCredential
	}

	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	id := Identity{
		UID:       token.UID,
		Anonymous: token.Firebase.SignInProvider == "anonymous",
	}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}

	record, err := p.client.GetUser(ctx, token.UID)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to load user %s: %w", token.UID, err)
	}
	if record.UserInfo != nil {
		id.DisplayName = record.DisplayName
		id.PhotoURL = record.PhotoURL
		if record.Email != "" {
			id.Email = record.Email
		}
	}
	if record.UserMetadata != nil {
		id.CreatedAt = fromMillis(record.UserMetadata.CreationTimestamp)
		id.LastSignInAt = fromMillis(record.UserMetadata.LastLogInTimestamp)
	}
	return id, nil
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Package domain holds the entities shared by the ledger packages: users and
// the allowed-user gate, fields (categories) and income/expense transactions.
package domain

import (
	"strings"
	"time"
)

// TransactionType is fixed when a transaction is created.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// User is the profile stored for every principal that ever signed in.
// The document id is the UID.
type User struct {
	UID          string    `json:"uid" firestore:"uid"`
	DisplayName  string    `json:"displayName" firestore:"displayName"`
	Email        string    `json:"email" firestore:"email"`
	PhotoURL     string    `json:"photoURL" firestore:"photoURL"`
	Created      time.Time `json:"created" firestore:"created"`
	LastLoggedIn time.Time `json:"lastLoggedIn" firestore:"lastLoggedIn"`
	IsAdmin      bool      `json:"isAdmin" firestore:"isAdmin"`
}

// Principal is the authenticated identity performing an operation.
type Principal struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
	IsAdmin     bool   `json:"isAdmin"`
	IsOwner     bool   `json:"isOwner"`
}

// Principal derives the acting identity for u. ownerEmail names the
// distinguished owner allowed to manage the allowed-user list.
func (u User) Principal(ownerEmail string) Principal {
	return Principal{
		UID:         u.UID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
		IsAdmin:     u.IsAdmin,
		IsOwner:     IsOwnerEmail(u.Email, ownerEmail),
	}
}

// IsOwnerEmail compares emails case-insensitively. An empty owner never matches.
func IsOwnerEmail(email, ownerEmail string) bool {
	owner := NormalizeEmail(ownerEmail)
	return owner != "" && NormalizeEmail(email) == owner
}

// NormalizeEmail trims and lower-cases an email for comparison and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AllowedUser gates sign-in eligibility by email.
type AllowedUser struct {
	AllowedUserID string    `json:"allowedUserId" firestore:"allowedUserId"`
	Email         string    `json:"email" firestore:"email"`
	Created       time.Time `json:"created" firestore:"created"`
}

// Field is a user defined transaction category.
type Field struct {
	FieldID string     `json:"fieldId" firestore:"fieldId"`
	Name    string     `json:"name" firestore:"name"`
	Created time.Time  `json:"created" firestore:"created"`
	Updated *time.Time `json:"updated,omitempty" firestore:"updated"`
}

// Transaction is a single income or expense entry. Author is resolved from
// AuthorID at read time and is never written back to the store.
type Transaction struct {
	TransactionID string          `json:"transactionId" firestore:"transactionId"`
	AuthorID      string          `json:"authorId" firestore:"authorId"`
	Type          TransactionType `json:"type" firestore:"type"`
	Price         float64         `json:"price" firestore:"price"`
	Description   string          `json:"description" firestore:"description"`
	Date          time.Time       `json:"date" firestore:"date"`
	FieldID       string          `json:"fieldId,omitempty" firestore:"fieldId"`
	Created       time.Time       `json:"created" firestore:"created"`
	Updated       *time.Time      `json:"updated,omitempty" firestore:"updated"`
	Author        *User           `json:"author,omitempty" firestore:"-"`
}

// Input returns the caller editable part of t.
func (t Transaction) Input() TransactionInput {
	return TransactionInput{
		Price:       t.Price,
		Description: t.Description,
		Date:        t.Date,
		FieldID:     t.FieldID,
	}
}

// TransactionInput carries the caller supplied attributes of a transaction.
type TransactionInput struct {
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	FieldID     string    `json:"fieldId,omitempty"`
}

// Normalize trims free text attributes.
func (in TransactionInput) Normalize() TransactionInput {
	in.Description = strings.TrimSpace(in.Description)
	in.FieldID = strings.TrimSpace(in.FieldID)
	return in
}

// FieldInput carries the caller supplied attributes of a field.
type FieldInput struct {
	Name string `json:"name"`
}

// Normalize trims the field name.
func (in FieldInput) Normalize() FieldInput {
	in.Name = strings.TrimSpace(in.Name)
	return in
}

// AllowedUserInput carries the email to admit.
type AllowedUserInput struct {
	Email string `json:"email"`
}

// Normalize trims and lower-cases the email.
func (in AllowedUserInput) Normalize() AllowedUserInput {
	in.Email = NormalizeEmail(in.Email)
	return in
}

package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrForbidden is returned when the principal may not perform an operation.
	ErrForbidden = errors.New("operation not permitted for this principal")
	// ErrNotAllowed is returned when a sign-in email is missing from the allowed users.
	ErrNotAllowed = errors.New("email is not allowed to sign in")
	// ErrUnauthenticated is returned when no principal is available.
	ErrUnauthenticated = errors.New("no authenticated principal")
)

// ValidationError reports caller input that failed schema rules. It is
// returned before any remote call is attempted.
type ValidationError struct {
	Entity string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Entity, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Fields flattens the per-field messages, keyed by attribute name.
func (e *ValidationError) Fields() map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if errors.As(e.Err, &verrs) {
		for k, v := range verrs {
			if v != nil {
				out[k] = v.Error()
			}
		}
		return out
	}
	out[e.Entity] = e.Err.Error()
	return out
}

// DuplicateError reports an attempt to add an already present unique key.
type DuplicateError struct {
	Entity string
	Key    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Key)
}

// PersistenceError reports a failed remote read or write.
type PersistenceError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *PersistenceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(" ")
	b.WriteString(e.Collection)
	if e.ID != "" {
		b.WriteString("/")
		b.WriteString(e.ID)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func invalid(entity string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Entity: entity, Err: err}
}

// FieldNames lists the offending attribute names of a validation error in
// stable order. Non validation errors yield nil.
func FieldNames(err error) []string {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	fields := verr.Fields()
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

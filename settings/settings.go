// Package settings persists the two display preferences of a principal
// outside the ledger store, so they survive restarts and sign-ins.
package settings

import (
	"context"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-expense-ledger/domain"
)

// Mode is the display mode.
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
)

const (
	DefaultMode  = ModeLight
	DefaultColor = "#d32f2f"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Preferences are the persisted display settings.
type Preferences struct {
	Mode  Mode   `json:"mode"`
	Color string `json:"color"`
}

// Defaults returns the preferences used before anything was saved.
func Defaults() Preferences {
	return Preferences{Mode: DefaultMode, Color: DefaultColor}
}

// WithDefaults fills empty values from Defaults and normalizes case.
func (p Preferences) WithDefaults() Preferences {
	p.Mode = Mode(strings.ToLower(strings.TrimSpace(string(p.Mode))))
	p.Color = strings.ToLower(strings.TrimSpace(p.Color))
	if p.Mode == "" {
		p.Mode = DefaultMode
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
	return p
}

// Validate checks the mode and the #rrggbb color.
func (p Preferences) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Mode, validation.Required, validation.In(ModeLight, ModeDark).Error("mode must be light or dark")),
		validation.Field(&p.Color, validation.Required, validation.Match(colorPattern).Error("color must be #rrggbb")),
	)
	if err != nil {
		return &domain.ValidationError{Entity: "settings", Err: err}
	}
	return nil
}

// Store reads and writes preferences per owner, usually a principal UID.
// Load returns Defaults for an owner with nothing saved.
type Store interface {
	Load(ctx context.Context, owner string) (Preferences, error)
	Save(ctx context.Context, owner string, p Preferences) (Preferences, error)
	Clear(ctx context.Context, owner string) error
}

func prepare(p Preferences) (Preferences, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

package domain

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Validate checks the transaction schema: date, non-negative price and a
// description are required, the field is optional.
func (in TransactionInput) Validate() error {
	in = in.Normalize()
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Date, validation.Required.Error("date is required")),
		validation.Field(&in.Price, validation.Min(0.0).Error("price must not be negative")),
		validation.Field(&in.Description, validation.Required.Error("description is required")),
	)
	return invalid("transaction", err)
}

// Validate checks a full transaction before it is written back.
func (t Transaction) Validate() error {
	if err := t.Input().Validate(); err != nil {
		return err
	}
	err := validation.ValidateStruct(&t,
		validation.Field(&t.TransactionID, validation.Required.Error("transaction id is required")),
		validation.Field(&t.Type, validation.Required, validation.In(Income, Expense)),
	)
	return invalid("transaction", err)
}

// Validate requires a non-empty field name.
func (in FieldInput) Validate() error {
	in = in.Normalize()
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error("field name is required")),
	)
	return invalid("field", err)
}

// Validate checks a full field before it is written back.
func (f Field) Validate() error {
	if err := (FieldInput{Name: f.Name}).Validate(); err != nil {
		return err
	}
	err := validation.ValidateStruct(&f,
		validation.Field(&f.FieldID, validation.Required.Error("field id is required")),
	)
	return invalid("field", err)
}

// Validate requires a well formed email.
func (in AllowedUserInput) Validate() error {
	in = in.Normalize()
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required.Error("email is required"), is.EmailFormat),
	)
	return invalid("allowed user", err)
}

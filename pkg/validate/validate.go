// Package validate wraps go-ozzo validation with this repository's
// error taxonomy, the same way the bot's validations package turns
// ozzo-validation failures into pkgError.ValidationError.
package validate

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
)

// Struct validates s against rules and, on failure, wraps the
// ozzo-validation error as a ValidationError carrying its message.
func Struct(s interface{}, rules ...*validation.FieldRules) error {
	if err := validation.ValidateStruct(s, rules...); err != nil {
		return pkgerrors.ValidationError(err.Error())
	}
	return nil
}

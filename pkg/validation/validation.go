// Package validation wraps go-playground/validator for struct-level checks
// beyond what gin's binding tags cover at the HTTP edge.
package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates a struct against its `validate` tags.
func Struct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			f := errs[0]
			return fmt.Errorf("invalid %s: failed %s validation", f.Field(), f.Tag())
		}
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

// Var validates a single value against a tag expression, e.g. "required,email".
func Var(v interface{}, tag string) error {
	if err := validate.Var(v, tag); err != nil {
		return fmt.Errorf("invalid value: failed %s validation", tag)
	}
	return nil
}

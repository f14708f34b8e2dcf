package validation

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/metatrack/errors"
)

// DetailFields is the AppError detail key holding the []FieldError list.
const DetailFields = "fields"

// FieldError is one failed check. Field is the dotted config key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Field + ": " + e.Message }

// Validator collects failed checks for a config section. Every check
// returns the validator so checks chain; all of them run.
type Validator struct {
	section string
	errors  []FieldError
}

// New returns a validator whose field names are used as given.
func New() *Validator { return &Validator{} }

// For returns a validator that reports fields as section.field, matching
// the YAML keys.
func For(section string) *Validator { return &Validator{section: section} }

func (v *Validator) key(field string) string {
	if v.section == "" {
		return field
	}
	return v.section + "." + field
}

// AddError records a failed check on field.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: v.key(field), Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

// Errors returns the failed checks in the order they ran.
func (v *Validator) Errors() []FieldError { return v.errors }

// Validate returns an INVALID_INPUT AppError listing every failed check, or
// nil.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = e.String()
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail(DetailFields, v.errors)
}

// Err is Validate as a plain error, nil when every check passed.
func (v *Validator) Err() error {
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Required fails on an empty or blank value.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// NotEmpty fails when a list field has no entries.
func (v *Validator) NotEmpty(field string, n int) *Validator {
	if n == 0 {
		v.AddError(field, "is required")
	}
	return v
}

// MaxLength fails when value is longer than maxLen bytes.
func (v *Validator) MaxLength(field, value string, maxLen int) *Validator {
	if len(value) > maxLen {
		v.AddError(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
	return v
}

// Min fails when value is below minVal.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("must be at least %d", minVal))
	}
	return v
}

// Range fails when value is outside [minVal, maxVal].
func (v *Validator) Range(field string, value, minVal, maxVal int) *Validator {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", minVal, maxVal))
	}
	return v
}

// OneOf fails when a non-empty value is not in allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value != "" && !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	}
	return v
}

// Duration fails unless value is a non-negative Go duration such as
// "250ms".
func (v *Validator) Duration(field, value string) *Validator {
	d, err := time.ParseDuration(value)
	switch {
	case err != nil:
		v.AddError(field, fmt.Sprintf("invalid duration %q", value))
	case d < 0:
		v.AddError(field, "must not be negative")
	}
	return v
}

// OptionalDuration is Duration for fields where empty means unset.
func (v *Validator) OptionalDuration(field, value string) *Validator {
	if value == "" {
		return v
	}
	return v.Duration(field, value)
}

// Custom fails with message unless condition holds.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

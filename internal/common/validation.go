package common

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidationError is one failed rule for one field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, fmt.Sprint(e.Value), e.Message)
}

// Validator collects field errors for request inputs.
type Validator struct {
	errors []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs rules against value and records every failure.
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error returns an INVALID_INPUT AppError wrapping ErrValidation, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError(CodeInvalidInput, v.ErrorMessage(), ErrValidation)
}

func (v *Validator) ErrorMessage() string {
	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

type ValidationRule func(fieldName string, value any) *ValidationError

func stringValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v != nil {
			return *v, true
		}
	}
	return "", false
}

func fail(fieldName string, value any, msg string) *ValidationError {
	return &ValidationError{Field: fieldName, Value: value, Message: msg}
}

// Required rejects nil and blank strings.
func Required(fieldName string, value any) *ValidationError {
	if value == nil {
		return fail(fieldName, value, "is required")
	}
	if str, ok := stringValue(value); ok && strings.TrimSpace(str) == "" {
		return fail(fieldName, value, "is required")
	}
	if p, ok := value.(*string); ok && p == nil {
		return fail(fieldName, value, "is required")
	}
	return nil
}

// MaxLength limits the rune count of a string field.
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := stringValue(value)
		if ok && utf8.RuneCountInString(str) > max {
			return fail(fieldName, value, fmt.Sprintf("must be at most %d characters", max))
		}
		return nil
	}
}

func UUID(fieldName string, value any) *ValidationError {
	str, ok := stringValue(value)
	if !ok {
		return fail(fieldName, value, "must be a string")
	}
	if _, err := uuid.Parse(str); err != nil {
		return fail(fieldName, value, "must be a valid UUID")
	}
	return nil
}

// OptionalUUID accepts an empty string or a valid UUID.
func OptionalUUID(fieldName string, value any) *ValidationError {
	if str, ok := stringValue(value); ok && str == "" {
		return nil
	}
	return UUID(fieldName, value)
}

// OneOf restricts a string field to a fixed set, case-insensitively.
func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := stringValue(value)
		if !ok {
			return fail(fieldName, value, "must be a string")
		}
		if slices.ContainsFunc(allowed, func(a string) bool { return strings.EqualFold(a, str) }) {
			return nil
		}
		return fail(fieldName, value, "must be one of "+strings.Join(allowed, ", "))
	}
}

// IntRange accepts an empty string or a decimal integer in [lo, hi].
func IntRange(lo, hi int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := stringValue(value)
		if !ok || str == "" {
			return nil
		}
		n, err := strconv.Atoi(str)
		if err != nil || n < lo || n > hi {
			return fail(fieldName, value, fmt.Sprintf("must be an integer in %d..%d", lo, hi))
		}
		return nil
	}
}

// ValidateAndReturnError returns a gRPC InvalidArgument error if validation fails.
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}

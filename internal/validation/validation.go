// Package validation checks raw form input before anything is sent to the
// entity store. Expected invalid input never produces a Go error: callers get
// either a typed record or a set of field-level messages.
package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// FieldErrors maps a form field name to a human-readable message
type FieldErrors map[string]string

// Empty reports whether no field failed
func (f FieldErrors) Empty() bool { return len(f) == 0 }

// Add records a message for field unless one is already present
func (f FieldErrors) Add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

// Error renders the violations in field order so FieldErrors can travel as an error
func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+f[field])
	}
	return strings.Join(parts, "; ")
}

const (
	MsgRequired    = "is required"
	MsgNotNumber   = "must be a number"
	MsgNotPositive = "must be greater than 0"
	MsgEmail       = "must be a valid email address"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report violations under the JSON field names the forms use
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs the tag rules of s and collects the violations into errs
func checkStruct(s interface{}, errs FieldErrors) {
	err := validate.Struct(s)
	if err == nil {
		return
	}

	violations, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError means a programming mistake, not bad input
		panic(fmt.Sprintf("validation: %v", err))
	}

	for _, fe := range violations {
		errs.Add(fe.Field(), message(fe))
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "email":
		return MsgEmail
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

// parsePositive coerces a form value into a decimal strictly greater than zero
func parsePositive(field, raw string, errs FieldErrors) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		errs.Add(field, MsgRequired)
		return decimal.Zero
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		errs.Add(field, MsgNotNumber)
		return decimal.Zero
	}

	if !value.IsPositive() {
		errs.Add(field, MsgNotPositive)
		return decimal.Zero
	}

	return value
}

// Package validation checks configuration and input records before they
// reach the scoring pipeline.
package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// ErrValidation marks every error returned by this package.
var ErrValidation = errors.New("validation failed")

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// bytes32Pattern matches a 0x-prefixed 32-byte hex string (schema IDs, attestation UIDs)
	bytes32Pattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(tagName)
	if err := validate.RegisterValidation("bytes32", func(fl validator.FieldLevel) bool {
		return IsBytes32(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// tagName reports fields by their yaml or mapstructure key so messages match
// what the user wrote.
func tagName(fld reflect.StructField) string {
	for _, key := range []string{"yaml", "mapstructure", "json"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// IsBytes32 reports whether s is a 0x-prefixed 32-byte hex string.
func IsBytes32(s string) bool {
	return bytes32Pattern.MatchString(s)
}

// ValidateSchemaID validates an attestation schema identifier
func ValidateSchemaID(id string) error {
	if id == "" {
		return errors.Mark(errors.New("schema id cannot be empty"), ErrValidation)
	}
	if !IsBytes32(id) {
		return errors.Mark(errors.Newf("schema id %q must be 0x followed by 64 hex characters", id), ErrValidation)
	}
	return nil
}

// Struct validates v using its `validate` struct tags
func Struct(v any) error {
	if v == nil {
		return errors.Mark(errors.New("value cannot be nil"), ErrValidation)
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return errors.Mark(err, ErrValidation)
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		param := e.Param()

		var out error
		switch e.Tag() {
		case "required":
			out = errors.Newf("%s: field is required", field)
		case "min", "gte":
			out = errors.Newf("%s: must be at least %s", field, param)
		case "max", "lte":
			out = errors.Newf("%s: must not exceed %s", field, param)
		case "gt":
			out = errors.Newf("%s: must be greater than %s", field, param)
		case "lt":
			out = errors.Newf("%s: must be less than %s", field, param)
		case "oneof":
			out = errors.Newf("%s: must be one of [%s]", field, param)
		case "eth_addr":
			out = errors.Newf("%s: %q is not a valid account address", field, e.Value())
		case "bytes32":
			out = errors.Newf("%s: %q must be 0x followed by 64 hex characters", field, e.Value())
		case "dive":
			out = errors.Newf("%s: invalid element in array", field)
		default:
			out = errors.Newf("%s: validation failed (%s)", field, e.Tag())
		}
		return errors.Mark(out, ErrValidation)
	}

	return errors.Mark(err, ErrValidation)
}

package aml

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrParse      = errors.New("aml: parse failed")
	ErrValidation = errors.New("aml: validation failed")

	ErrUnknownAttribute         = errors.New("aml: unknown attribute")
	ErrLengthMismatch           = errors.New("aml: message length mismatch")
	ErrMalformedValue           = errors.New("aml: malformed value")
	ErrUnknownPositioningMethod = errors.New("aml: unknown positioning method")
	ErrUnsupportedVersion       = errors.New("aml: unsupported version")

	ErrNotEncodable = errors.New("aml: message not encodable")
)

// ParseError reports a structural or content failure in the wire message.
// It matches ErrParse and its Kind sentinel under errors.Is.
type ParseError struct {
	Kind      error
	Attribute string
	Value     string
	Unknown   []string
	Reason    string
}

func (e *ParseError) Error() string {
	return "aml: " + e.Reason
}

func (e *ParseError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Kind}
}

// ValidationError reports a well-formed message rejected by a Validator.
type ValidationError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "aml: validation: " + e.Reason
	}
	return fmt.Sprintf("aml: validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Kind}
}

// NewValidationError builds a rejection for custom Validator implementations.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func unknownAttributesError(names []string) *ParseError {
	attr := ""
	if len(names) > 0 {
		attr = names[0]
	}
	return &ParseError{
		Kind:      ErrUnknownAttribute,
		Attribute: attr,
		Unknown:   names,
		Reason:    fmt.Sprintf("unknown attributes %q", names),
	}
}

func lengthMismatchError(declared *int, actual int) *ParseError {
	expected := "<nil>"
	value := ""
	if declared != nil {
		expected = strconv.Itoa(*declared)
		value = expected
	}
	return &ParseError{
		Kind:      ErrLengthMismatch,
		Attribute: AttrLength,
		Value:     value,
		Reason:    fmt.Sprintf("expected message length %s but was %d", expected, actual),
	}
}

func decodeError(attr Attribute, cause error) *ParseError {
	if errors.Is(cause, ErrUnknownPositioningMethod) {
		return &ParseError{
			Kind:      ErrUnknownPositioningMethod,
			Attribute: attr.Name,
			Value:     attr.Value,
			Reason:    fmt.Sprintf("cannot map positioning method %q of attribute %q", attr.Value, attr.Name),
		}
	}
	if !attr.HasValue {
		return &ParseError{
			Kind:      ErrMalformedValue,
			Attribute: attr.Name,
			Reason:    fmt.Sprintf("could not parse attribute %q: missing value", attr.Name),
		}
	}
	return &ParseError{
		Kind:      ErrMalformedValue,
		Attribute: attr.Name,
		Value:     attr.Value,
		Reason:    fmt.Sprintf("could not parse attribute %q value %q: %v", attr.Name, attr.Value, cause),
	}
}

// Outcome labels a parse result: "ok", "parse_error" or "validation_error".
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	default:
		return "parse_error"
	}
}

// Reason names the sentinel behind err in snake case, or "" for nil.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownAttribute):
		return "unknown_attribute"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, ErrUnknownPositioningMethod):
		return "unknown_positioning_method"
	case errors.Is(err, ErrMalformedValue):
		return "malformed_value"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrValidation):
		return "rejected"
	default:
		return "other"
	}
}

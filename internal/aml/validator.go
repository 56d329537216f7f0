package aml

import (
	"fmt"
	"slices"
)

// SupportedVersion is the only protocol version DefaultValidator accepts.
const SupportedVersion = 1

// Validator approves or rejects a parsed record. It may return the record
// unchanged, a replacement, or an error.
type Validator[T any] interface {
	Validate(T) (T, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc[T any] func(T) (T, error)

func (f ValidatorFunc[T]) Validate(v T) (T, error) {
	return f(v)
}

// NoValidation returns a Validator that accepts every record as-is.
func NoValidation[T any]() Validator[T] {
	return ValidatorFunc[T](func(v T) (T, error) { return v, nil })
}

// DefaultValidator accepts messages carrying SupportedVersion only.
var DefaultValidator Validator[Message] = SupportedVersions(SupportedVersion)

// VersionValidator rejects messages whose version is absent or not listed.
type VersionValidator struct {
	versions []int
}

// SupportedVersions builds a VersionValidator accepting the given versions.
func SupportedVersions(versions ...int) VersionValidator {
	v := slices.Clone(versions)
	slices.Sort(v)
	return VersionValidator{versions: slices.Compact(v)}
}

// Versions returns the accepted versions in ascending order.
func (v VersionValidator) Versions() []int {
	return slices.Clone(v.versions)
}

func (v VersionValidator) Validate(msg Message) (Message, error) {
	if msg.Version == nil {
		return Message{}, &ValidationError{
			Kind:   ErrUnsupportedVersion,
			Field:  AttrVersion,
			Reason: "missing interface version",
		}
	}
	if !slices.Contains(v.versions, *msg.Version) {
		return Message{}, &ValidationError{
			Kind:   ErrUnsupportedVersion,
			Field:  AttrVersion,
			Reason: fmt.Sprintf("unsupported interface version %d (supported %v)", *msg.Version, v.versions),
		}
	}
	return msg, nil
}

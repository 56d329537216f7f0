package aml

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func ptr[T any](v T) *T {
	return &v
}

func validMessage() Message {
	return Message{
		Version:           ptr(1),
		Latitude:          ptr(54.4),
		Longitude:         ptr(12.32),
		RadiusMeters:      ptr(34.2),
		TimeOfPositioning: ptr(time.Now().UTC()),
		LevelOfConfidence: ptr(85),
		PositionMethod:    ptr(Cell),
		IMSI:              ptr("1654321654"),
		IMEI:              ptr("65897654654"),
		MCC:               ptr("234"),
		MNC:               ptr("30"),
		Length:            ptr(110),
	}
}

func TestDefaultValidatorAcceptsVersionOne(t *testing.T) {
	msg := validMessage()
	got, err := DefaultValidator.Validate(msg)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !got.Equal(msg) {
		t.Fatalf("validator changed message: %s", got)
	}
}

func TestDefaultValidatorRejectsOtherVersions(t *testing.T) {
	msg := validMessage()
	msg.Version = ptr(2)
	_, err := DefaultValidator.Validate(msg)
	var ve *ValidationError
	if !errors.As(err, &ve) || !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected unsupported version, got %v", err)
	}
	if ve.Field != AttrVersion {
		t.Fatalf("unexpected field: %q", ve.Field)
	}

	msg.Version = nil
	if _, err := DefaultValidator.Validate(msg); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected missing version rejected, got %v", err)
	}
}

func TestSupportedVersionsDeduplicates(t *testing.T) {
	v := SupportedVersions(3, 1, 3, 2)
	if got := v.Versions(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Fatalf("versions = %v", got)
	}
	msg := validMessage()
	msg.Version = ptr(3)
	if _, err := v.Validate(msg); err != nil {
		t.Fatalf("expected version 3 accepted: %v", err)
	}
	msg.Version = ptr(4)
	if _, err := v.Validate(msg); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected version 4 rejected, got %v", err)
	}
}

func TestNoValidationReturnsInput(t *testing.T) {
	msg := Message{Version: ptr(42)}
	got, err := NoValidation[Message]().Validate(msg)
	if err != nil || !got.Equal(msg) {
		t.Fatalf("no validation = %s, %v", got, err)
	}
}

func TestValidationErrorText(t *testing.T) {
	err := NewValidationError("mcc", "network not served")
	if got, want := err.Error(), "aml: validation: mcc: network not served"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrValidation) || errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("unexpected error matching for %v", err)
	}
}

func TestOutcomeAndReason(t *testing.T) {
	_, parseErr := Decode("kl=1;ml=9")
	_, versionErr := DefaultValidator.Validate(Message{})
	cases := []struct {
		err     error
		outcome string
		reason  string
	}{
		{nil, "ok", ""},
		{parseErr, "parse_error", "unknown_attribute"},
		{versionErr, "validation_error", "unsupported_version"},
		{NewValidationError("mcc", "blocked"), "validation_error", "rejected"},
		{errors.New("io"), "parse_error", "other"},
	}
	for _, tc := range cases {
		if got := Outcome(tc.err); got != tc.outcome {
			t.Fatalf("Outcome(%v) = %q, want %q", tc.err, got, tc.outcome)
		}
		if got := Reason(tc.err); got != tc.reason {
			t.Fatalf("Reason(%v) = %q, want %q", tc.err, got, tc.reason)
		}
	}
}

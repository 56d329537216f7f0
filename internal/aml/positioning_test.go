package aml

import (
	"errors"
	"testing"
)

func TestParsePositioningMethodCodes(t *testing.T) {
	cases := map[string]PositioningMethod{
		"G": GNSS,
		"W": WiFiSignal,
		"C": Cell,
		"N": NoLocation,
	}
	for code, want := range cases {
		got, err := ParsePositioningMethod(code)
		if err != nil || got != want {
			t.Fatalf("ParsePositioningMethod(%q) = (%v, %v), want %v", code, got, err, want)
		}
		if got.Code() != code {
			t.Fatalf("%v.Code() = %q, want %q", got, got.Code(), code)
		}
	}
}

func TestParsePositioningMethodUnknown(t *testing.T) {
	for _, code := range []string{"ZZ", "g", "", "GW"} {
		if _, err := ParsePositioningMethod(code); !errors.Is(err, ErrUnknownPositioningMethod) {
			t.Fatalf("ParsePositioningMethod(%q) expected unknown method, got %v", code, err)
		}
	}
}

func TestPositioningMethodText(t *testing.T) {
	text, err := WiFiSignal.MarshalText()
	if err != nil || string(text) != "WIFI_SIGNAL" {
		t.Fatalf("MarshalText = (%q, %v)", text, err)
	}

	var m PositioningMethod
	if err := m.UnmarshalText([]byte("NO_LOCATION")); err != nil || m != NoLocation {
		t.Fatalf("UnmarshalText(name) = %v, %v", m, err)
	}
	if err := m.UnmarshalText([]byte("C")); err != nil || m != Cell {
		t.Fatalf("UnmarshalText(code) = %v, %v", m, err)
	}
	if err := m.UnmarshalText([]byte("SATELLITE")); err == nil {
		t.Fatalf("expected error for unknown name")
	}

	var zero PositioningMethod
	if zero.Valid() {
		t.Fatalf("zero value must not be a valid method")
	}
	if _, err := zero.MarshalText(); err == nil {
		t.Fatalf("expected error marshaling zero method")
	}
}

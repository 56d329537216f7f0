package aml

import "fmt"

// PositioningMethod is the technology a handset used for its location fix.
type PositioningMethod uint8

const (
	GNSS PositioningMethod = iota + 1
	WiFiSignal
	Cell
	NoLocation
)

var positioningNames = map[PositioningMethod]string{
	GNSS:       "GNSS",
	WiFiSignal: "WIFI_SIGNAL",
	Cell:       "CELL",
	NoLocation: "NO_LOCATION",
}

var positioningCodes = map[PositioningMethod]string{
	GNSS:       "G",
	WiFiSignal: "W",
	Cell:       "C",
	NoLocation: "N",
}

// ParsePositioningMethod maps a wire code (G, W, C, N) to its method.
func ParsePositioningMethod(code string) (PositioningMethod, error) {
	switch code {
	case "G":
		return GNSS, nil
	case "W":
		return WiFiSignal, nil
	case "C":
		return Cell, nil
	case "N":
		return NoLocation, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPositioningMethod, code)
	}
}

// Code returns the single-letter wire code, or "" for an invalid method.
func (m PositioningMethod) Code() string {
	return positioningCodes[m]
}

// Valid reports whether m is one of the four defined methods.
func (m PositioningMethod) Valid() bool {
	_, ok := positioningNames[m]
	return ok
}

func (m PositioningMethod) String() string {
	if name, ok := positioningNames[m]; ok {
		return name
	}
	return fmt.Sprintf("PositioningMethod(%d)", uint8(m))
}

func (m PositioningMethod) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPositioningMethod, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts either the enum name (WIFI_SIGNAL) or the wire code (W).
func (m *PositioningMethod) UnmarshalText(text []byte) error {
	s := string(text)
	for method, name := range positioningNames {
		if name == s {
			*m = method
			return nil
		}
	}
	method, err := ParsePositioningMethod(s)
	if err != nil {
		return err
	}
	*m = method
	return nil
}

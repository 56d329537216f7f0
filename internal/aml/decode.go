package aml

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// TimestampLayout is the wire layout of the top attribute, always UTC.
const TimestampLayout = "20060102150405"

var (
	errNotInteger   = errors.New("not an integer")
	errNotDecimal   = errors.New("not a decimal number")
	errNotTimestamp = errors.New("not a YYYYMMDDhhmmss timestamp")
)

var decimalPattern = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// ParseInteger parses an optionally signed run of decimal digits.
func ParseInteger(s string) (int, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, errNotInteger
	}
	return int(v), nil
}

// ParseDecimal parses a signed decimal number such as +54.76397 or -0.18305.
func ParseDecimal(s string) (float64, error) {
	if !decimalPattern.MatchString(s) {
		return 0, errNotDecimal
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errNotDecimal
	}
	return v, nil
}

// ParseTimestamp parses a 14 digit YYYYMMDDhhmmss value in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if len(s) != len(TimestampLayout) {
		return time.Time{}, errNotTimestamp
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, errNotTimestamp
		}
	}
	ts, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, errNotTimestamp
	}
	return ts, nil
}

func parseString(s string) (string, error) {
	return s, nil
}

// decodeField returns nil for an absent attribute and a *ParseError for a
// present attribute that parse rejects or that carries no value.
func decodeField[T any](table AttributeTable, name string, parse func(string) (T, error)) (*T, error) {
	attr, ok := table.Get(name)
	if !ok {
		return nil, nil
	}
	if !attr.HasValue {
		return nil, decodeError(attr, nil)
	}
	v, err := parse(attr.Value)
	if err != nil {
		return nil, decodeError(attr, err)
	}
	return &v, nil
}

// DecodeInteger decodes the named integer attribute from table.
func DecodeInteger(table AttributeTable, name string) (*int, error) {
	return decodeField(table, name, ParseInteger)
}

// DecodeDecimal decodes the named floating point attribute from table.
func DecodeDecimal(table AttributeTable, name string) (*float64, error) {
	return decodeField(table, name, ParseDecimal)
}

// DecodeTimestamp decodes the named timestamp attribute from table.
func DecodeTimestamp(table AttributeTable, name string) (*time.Time, error) {
	return decodeField(table, name, ParseTimestamp)
}

// DecodePositioningMethod decodes the named positioning method attribute from table.
func DecodePositioningMethod(table AttributeTable, name string) (*PositioningMethod, error) {
	return decodeField(table, name, ParsePositioningMethod)
}

// DecodeString returns the raw value of the named attribute.
func DecodeString(table AttributeTable, name string) (*string, error) {
	return decodeField(table, name, parseString)
}

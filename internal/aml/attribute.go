package aml

import (
	"slices"
	"strings"
)

// Attribute names of the AML wire format.
const (
	AttrVersion           = `A"ML`
	AttrLatitude          = "lt"
	AttrLongitude         = "lg"
	AttrRadius            = "rd"
	AttrTimeOfPositioning = "top"
	AttrLevelOfConfidence = "lc"
	AttrPositioningMethod = "pm"
	AttrIMSI              = "si"
	AttrIMEI              = "ei"
	AttrMCC               = "mcc"
	AttrMNC               = "mnc"
	AttrLength            = "ml"
)

const (
	attributeSeparator = ";"
	nameValueSeparator = "="
)

// knownAttributes is also the canonical encoding order.
var knownAttributes = [...]string{
	AttrVersion,
	AttrLatitude,
	AttrLongitude,
	AttrRadius,
	AttrTimeOfPositioning,
	AttrLevelOfConfidence,
	AttrPositioningMethod,
	AttrIMSI,
	AttrIMEI,
	AttrMCC,
	AttrMNC,
	AttrLength,
}

// KnownAttributes returns the attribute names accepted in an AML message.
func KnownAttributes() []string {
	return slices.Clone(knownAttributes[:])
}

// Attribute is one name=value pair of the wire message.
// HasValue is false when the segment carried no '='.
type Attribute struct {
	Name     string
	Value    string
	HasValue bool
}

// Tokenize splits raw into attributes in wire order. Segments split on the
// first '='. Trailing empty segments are dropped; any other empty segment
// produces an attribute with an empty name.
func Tokenize(raw string) []Attribute {
	segments := strings.Split(raw, attributeSeparator)
	if len(segments) > 1 {
		for len(segments) > 0 && segments[len(segments)-1] == "" {
			segments = segments[:len(segments)-1]
		}
	}
	out := make([]Attribute, 0, len(segments))
	for _, segment := range segments {
		name, value, ok := strings.Cut(segment, nameValueSeparator)
		out = append(out, Attribute{Name: name, Value: value, HasValue: ok})
	}
	return out
}

// AttributeTable maps attribute names to their last occurrence in a message.
type AttributeTable struct {
	attrs map[string]Attribute
}

// NewAttributeTable folds attrs by name; a later duplicate replaces an earlier one.
func NewAttributeTable(attrs []Attribute) AttributeTable {
	table := AttributeTable{attrs: make(map[string]Attribute, len(attrs))}
	for _, attr := range attrs {
		table.attrs[attr.Name] = attr
	}
	return table
}

// Get returns the attribute stored under name.
func (t AttributeTable) Get(name string) (Attribute, bool) {
	attr, ok := t.attrs[name]
	return attr, ok
}

// Len returns the number of distinct attribute names.
func (t AttributeTable) Len() int {
	return len(t.attrs)
}

// Names returns the attribute names in sorted order.
func (t AttributeTable) Names() []string {
	names := make([]string, 0, len(t.attrs))
	for name := range t.attrs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CheckKnown fails with a *ParseError naming every attribute outside allowed.
func (t AttributeTable) CheckKnown(allowed []string) error {
	var unknown []string
	for _, name := range t.Names() {
		if !slices.Contains(allowed, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) != 0 {
		return unknownAttributesError(unknown)
	}
	return nil
}

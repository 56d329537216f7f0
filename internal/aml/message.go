package aml

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Message is a decoded AML message. Every field is optional; a nil pointer
// means the attribute was absent from the wire message.
type Message struct {
	Version           *int               `json:"version,omitempty"`
	Latitude          *float64           `json:"latitude,omitempty"`
	Longitude         *float64           `json:"longitude,omitempty"`
	RadiusMeters      *float64           `json:"radius_meters,omitempty"`
	IMSI              *string            `json:"imsi,omitempty"`
	IMEI              *string            `json:"imei,omitempty"`
	TimeOfPositioning *time.Time         `json:"time_of_positioning,omitempty"`
	LevelOfConfidence *int               `json:"level_of_confidence,omitempty"`
	PositionMethod    *PositioningMethod `json:"position_method,omitempty"`
	MCC               *string            `json:"mcc,omitempty"`
	MNC               *string            `json:"mnc,omitempty"`
	Length            *int               `json:"length,omitempty"`
}

// Equal compares every field of m and o by value.
func (m Message) Equal(o Message) bool {
	return equalPtr(m.Version, o.Version) &&
		equalPtr(m.Latitude, o.Latitude) &&
		equalPtr(m.Longitude, o.Longitude) &&
		equalPtr(m.RadiusMeters, o.RadiusMeters) &&
		equalPtr(m.IMSI, o.IMSI) &&
		equalPtr(m.IMEI, o.IMEI) &&
		equalTime(m.TimeOfPositioning, o.TimeOfPositioning) &&
		equalPtr(m.LevelOfConfidence, o.LevelOfConfidence) &&
		equalPtr(m.PositionMethod, o.PositionMethod) &&
		equalPtr(m.MCC, o.MCC) &&
		equalPtr(m.MNC, o.MNC) &&
		equalPtr(m.Length, o.Length)
}

func (m Message) String() string {
	var b strings.Builder
	b.WriteString("Message{")
	fmt.Fprintf(&b, "version=%s", fmtPtr(m.Version))
	fmt.Fprintf(&b, ", latitude=%s", fmtPtr(m.Latitude))
	fmt.Fprintf(&b, ", longitude=%s", fmtPtr(m.Longitude))
	fmt.Fprintf(&b, ", radiusMeters=%s", fmtPtr(m.RadiusMeters))
	fmt.Fprintf(&b, ", imsi=%s", quotePtr(m.IMSI))
	fmt.Fprintf(&b, ", imei=%s", quotePtr(m.IMEI))
	if m.TimeOfPositioning != nil {
		fmt.Fprintf(&b, ", timeOfPositioning=%s", m.TimeOfPositioning.UTC().Format(time.RFC3339))
	} else {
		b.WriteString(", timeOfPositioning=<nil>")
	}
	fmt.Fprintf(&b, ", levelOfConfidence=%s", fmtPtr(m.LevelOfConfidence))
	fmt.Fprintf(&b, ", positionMethod=%s", fmtPtr(m.PositionMethod))
	fmt.Fprintf(&b, ", mcc=%s", quotePtr(m.MCC))
	fmt.Fprintf(&b, ", mnc=%s", quotePtr(m.MNC))
	fmt.Fprintf(&b, ", length=%s", fmtPtr(m.Length))
	b.WriteString("}")
	return b.String()
}

// CheckEncodable reports, wrapping ErrNotEncodable, the first field of m that
// Encode cannot render so that it parses back to the same value. Values may
// contain '=' since attributes split on the first one only.
func (m Message) CheckEncodable() error {
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{AttrLatitude, m.Latitude},
		{AttrLongitude, m.Longitude},
		{AttrRadius, m.RadiusMeters},
	} {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			return fmt.Errorf("%w: %s is %v", ErrNotEncodable, f.name, *f.v)
		}
	}
	for _, f := range []struct {
		name string
		v    *int
	}{
		{AttrVersion, m.Version},
		{AttrLevelOfConfidence, m.LevelOfConfidence},
	} {
		if f.v != nil && (*f.v < math.MinInt32 || *f.v > math.MaxInt32) {
			return fmt.Errorf("%w: %s %d out of range", ErrNotEncodable, f.name, *f.v)
		}
	}
	for _, f := range []struct {
		name string
		v    *string
	}{
		{AttrIMSI, m.IMSI},
		{AttrIMEI, m.IMEI},
		{AttrMCC, m.MCC},
		{AttrMNC, m.MNC},
	} {
		if f.v != nil && strings.Contains(*f.v, attributeSeparator) {
			return fmt.Errorf("%w: %s contains %q", ErrNotEncodable, f.name, attributeSeparator)
		}
	}
	if m.TimeOfPositioning != nil {
		if year := m.TimeOfPositioning.UTC().Year(); year < 0 || year > 9999 {
			return fmt.Errorf("%w: %s year %d", ErrNotEncodable, AttrTimeOfPositioning, year)
		}
	}
	return nil
}

// Encode renders m in wire form using the canonical attribute order.
// Absent fields are omitted and ml is recomputed. When m.CheckEncodable()
// is nil the output parses back to m, with Length set to the encoded length
// and TimeOfPositioning truncated to whole seconds.
func (m Message) Encode() string {
	parts := make([]string, 0, len(knownAttributes))
	add := func(name, value string) {
		parts = append(parts, name+nameValueSeparator+value)
	}
	if m.Version != nil {
		add(AttrVersion, strconv.Itoa(*m.Version))
	}
	if m.Latitude != nil {
		add(AttrLatitude, formatSigned(*m.Latitude))
	}
	if m.Longitude != nil {
		add(AttrLongitude, formatSigned(*m.Longitude))
	}
	if m.RadiusMeters != nil {
		add(AttrRadius, strconv.FormatFloat(*m.RadiusMeters, 'f', -1, 64))
	}
	if m.TimeOfPositioning != nil {
		add(AttrTimeOfPositioning, m.TimeOfPositioning.UTC().Format(TimestampLayout))
	}
	if m.LevelOfConfidence != nil {
		add(AttrLevelOfConfidence, strconv.Itoa(*m.LevelOfConfidence))
	}
	if m.PositionMethod != nil {
		add(AttrPositioningMethod, m.PositionMethod.Code())
	}
	if m.IMSI != nil {
		add(AttrIMSI, *m.IMSI)
	}
	if m.IMEI != nil {
		add(AttrIMEI, *m.IMEI)
	}
	if m.MCC != nil {
		add(AttrMCC, *m.MCC)
	}
	if m.MNC != nil {
		add(AttrMNC, *m.MNC)
	}

	body := strings.Join(parts, attributeSeparator)
	if body != "" {
		body += attributeSeparator
	}
	body += AttrLength + nameValueSeparator
	return body + strconv.Itoa(selfLength(MessageLength(body)))
}

// selfLength returns the total length n+d where d is the digit count of the total.
func selfLength(n int) int {
	for digits := 1; ; digits++ {
		total := n + digits
		if len(strconv.Itoa(total)) == digits {
			return total
		}
	}
}

// formatSigned keeps the explicit '+' handsets send for coordinates.
func formatSigned(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v >= 0 && !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func fmtPtr[T any](p *T) string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprint(*p)
}

func quotePtr(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return strconv.Quote(*p)
}

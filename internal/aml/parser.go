package aml

import (
	"errors"
	"unicode/utf16"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errNilBuilder = errors.New("aml: nil builder")

// Builder turns a decoded Message into the caller's record type.
type Builder[T any] interface {
	Build(Message) (T, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc[T any] func(Message) (T, error)

func (f BuilderFunc[T]) Build(m Message) (T, error) {
	return f(m)
}

// Identity builds the decoded Message itself.
var Identity Builder[Message] = BuilderFunc[Message](func(m Message) (Message, error) {
	return m, nil
})

// Settings holds the collaborators a Parser hands every message to.
type Settings struct {
	Validator Validator[Message]
	Logger    *zerolog.Logger
}

type Option func(*Settings)

// WithValidator replaces DefaultValidator. A nil validator disables validation.
func WithValidator(v Validator[Message]) Option {
	return func(s *Settings) {
		s.Validator = v
	}
}

// WithLogger routes parser diagnostics to logger instead of the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Settings) {
		s.Logger = &logger
	}
}

// Parser decodes and validates AML messages. It holds no per-message state
// and is safe for concurrent use.
type Parser struct {
	settings Settings
}

func NewParser(opts ...Option) *Parser {
	settings := Settings{Validator: DefaultValidator}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Validator == nil {
		settings.Validator = NoValidation[Message]()
	}
	return &Parser{settings: settings}
}

// Settings returns the parser configuration.
func (p *Parser) Settings() Settings {
	return p.settings
}

// Parse decodes raw and runs the configured validator on the result.
func (p *Parser) Parse(raw string) (Message, error) {
	msg, err := ParseInto(raw, Identity, p.settings.Validator)
	if err != nil {
		p.logger().Debug().
			Err(err).
			Int("length", MessageLength(raw)).
			Bool("validation", errors.Is(err, ErrValidation)).
			Msg("aml message rejected")
		return Message{}, err
	}
	p.logger().Trace().Int("attributes", countPresent(msg)).Msg("aml message parsed")
	return msg, nil
}

func (p *Parser) logger() *zerolog.Logger {
	if p.settings.Logger != nil {
		return p.settings.Logger
	}
	return &log.Logger
}

// Parse decodes raw with DefaultValidator.
func Parse(raw string) (Message, error) {
	return NewParser().Parse(raw)
}

// ParseInto decodes raw, builds a T from the result and validates it.
// The validator runs exactly once, after a successful decode; a nil validator
// skips validation.
func ParseInto[T any](raw string, builder Builder[T], validator Validator[T]) (T, error) {
	var zero T
	if builder == nil {
		return zero, errNilBuilder
	}
	msg, err := Decode(raw)
	if err != nil {
		return zero, err
	}
	record, err := builder.Build(msg)
	if err != nil {
		return zero, err
	}
	if validator == nil {
		return record, nil
	}
	return validator.Validate(record)
}

// Decode runs the structural checks and field decoders without validation.
func Decode(raw string) (Message, error) {
	table := NewAttributeTable(Tokenize(raw))
	if err := CheckLength(raw, table); err != nil {
		return Message{}, err
	}
	if err := table.CheckKnown(knownAttributes[:]); err != nil {
		return Message{}, err
	}
	return Assemble(table)
}

// CheckLength compares the declared ml attribute with MessageLength(raw).
// An absent ml never matches.
func CheckLength(raw string, table AttributeTable) error {
	declared, err := DecodeInteger(table, AttrLength)
	if err != nil {
		return err
	}
	actual := MessageLength(raw)
	if declared == nil || *declared != actual {
		return lengthMismatchError(declared, actual)
	}
	return nil
}

// MessageLength counts raw in UTF-16 code units, the unit handsets use for
// ml. Characters outside the Basic Multilingual Plane count twice.
func MessageLength(raw string) int {
	n := 0
	for _, r := range raw {
		if w := utf16.RuneLen(r); w > 0 {
			n += w
		} else {
			n++
		}
	}
	return n
}

// Assemble decodes every known attribute of table into a Message, stopping
// at the first failure.
func Assemble(table AttributeTable) (Message, error) {
	a := &assembler{table: table}
	msg := Message{
		Version:           field(a, AttrVersion, DecodeInteger),
		Latitude:          field(a, AttrLatitude, DecodeDecimal),
		Longitude:         field(a, AttrLongitude, DecodeDecimal),
		RadiusMeters:      field(a, AttrRadius, DecodeDecimal),
		IMSI:              field(a, AttrIMSI, DecodeString),
		IMEI:              field(a, AttrIMEI, DecodeString),
		TimeOfPositioning: field(a, AttrTimeOfPositioning, DecodeTimestamp),
		LevelOfConfidence: field(a, AttrLevelOfConfidence, DecodeInteger),
		PositionMethod:    field(a, AttrPositioningMethod, DecodePositioningMethod),
		MCC:               field(a, AttrMCC, DecodeString),
		MNC:               field(a, AttrMNC, DecodeString),
		Length:            field(a, AttrLength, DecodeInteger),
	}
	if a.err != nil {
		return Message{}, a.err
	}
	return msg, nil
}

type assembler struct {
	table AttributeTable
	err   error
}

func field[T any](a *assembler, name string, decode func(AttributeTable, string) (*T, error)) *T {
	if a.err != nil {
		return nil
	}
	v, err := decode(a.table, name)
	if err != nil {
		a.err = err
		return nil
	}
	return v
}

func countPresent(m Message) int {
	n := 0
	for _, present := range []bool{
		m.Version != nil, m.Latitude != nil, m.Longitude != nil, m.RadiusMeters != nil,
		m.IMSI != nil, m.IMEI != nil, m.TimeOfPositioning != nil, m.LevelOfConfidence != nil,
		m.PositionMethod != nil, m.MCC != nil, m.MNC != nil, m.Length != nil,
	} {
		if present {
			n++
		}
	}
	return n
}

package archive

import (
	"fmt"
	"time"

	"github.com/danmuck/amlctl/internal/aml"
	"github.com/fxamacker/cbor/v2"
)

var (
	recordEncMode cbor.EncMode
	recordDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	recordEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create archive CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	recordDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create archive CBOR decoder mode: %v", err))
	}
}

// Record is one archived message together with the text it was parsed from.
type Record struct {
	ID         string      `json:"id"`
	ReceivedAt time.Time   `json:"received_at"`
	Raw        string      `json:"raw"`
	Message    aml.Message `json:"message"`
}

// wireRecord is the integer-keyed CBOR layout of a Record. The positioning
// method travels as its wire code so the blob stays readable without this
// package's enum values.
type wireRecord struct {
	ID                string     `cbor:"1,keyasint"`
	ReceivedAt        time.Time  `cbor:"2,keyasint"`
	Raw               string     `cbor:"3,keyasint"`
	Version           *int       `cbor:"10,keyasint,omitempty"`
	Latitude          *float64   `cbor:"11,keyasint,omitempty"`
	Longitude         *float64   `cbor:"12,keyasint,omitempty"`
	RadiusMeters      *float64   `cbor:"13,keyasint,omitempty"`
	IMSI              *string    `cbor:"14,keyasint,omitempty"`
	IMEI              *string    `cbor:"15,keyasint,omitempty"`
	TimeOfPositioning *time.Time `cbor:"16,keyasint,omitempty"`
	LevelOfConfidence *int       `cbor:"17,keyasint,omitempty"`
	PositionMethod    *string    `cbor:"18,keyasint,omitempty"`
	MCC               *string    `cbor:"19,keyasint,omitempty"`
	MNC               *string    `cbor:"20,keyasint,omitempty"`
	Length            *int       `cbor:"21,keyasint,omitempty"`
}

// EncodeRecord encodes rec to deterministic CBOR.
func EncodeRecord(rec Record) ([]byte, error) {
	m := rec.Message
	w := wireRecord{
		ID:                rec.ID,
		ReceivedAt:        rec.ReceivedAt.UTC(),
		Raw:               rec.Raw,
		Version:           m.Version,
		Latitude:          m.Latitude,
		Longitude:         m.Longitude,
		RadiusMeters:      m.RadiusMeters,
		IMSI:              m.IMSI,
		IMEI:              m.IMEI,
		TimeOfPositioning: m.TimeOfPositioning,
		LevelOfConfidence: m.LevelOfConfidence,
		MCC:               m.MCC,
		MNC:               m.MNC,
		Length:            m.Length,
	}
	if m.PositionMethod != nil {
		code := m.PositionMethod.Code()
		w.PositionMethod = &code
	}
	return recordEncMode.Marshal(w)
}

// DecodeRecord decodes a blob written by EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	var w wireRecord
	if err := recordDecMode.Unmarshal(data, &w); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	rec := Record{
		ID:         w.ID,
		ReceivedAt: w.ReceivedAt,
		Raw:        w.Raw,
		Message: aml.Message{
			Version:           w.Version,
			Latitude:          w.Latitude,
			Longitude:         w.Longitude,
			RadiusMeters:      w.RadiusMeters,
			IMSI:              w.IMSI,
			IMEI:              w.IMEI,
			TimeOfPositioning: w.TimeOfPositioning,
			LevelOfConfidence: w.LevelOfConfidence,
			MCC:               w.MCC,
			MNC:               w.MNC,
			Length:            w.Length,
		},
	}
	if w.PositionMethod != nil {
		method, err := aml.ParsePositioningMethod(*w.PositionMethod)
		if err != nil {
			return Record{}, fmt.Errorf("decode record %s: %w", w.ID, err)
		}
		rec.Message.PositionMethod = &method
	}
	return rec, nil
}

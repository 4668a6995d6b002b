package parser

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"Hydrosync/internal/model"
)

// legacyFields is the column order of the bracket record.
var legacyFields = [...]string{
	model.FieldFlow, model.FieldCurrent, model.FieldPower, model.FieldVoltage,
}

// CSVParser handles the legacy logger format, a bracketed comma-separated
// record: [flow,current,power,voltage].
type CSVParser struct{}

// NewCSVParser creates a new legacy CSV parser.
func NewCSVParser() *CSVParser { return &CSVParser{} }

// DecodeSample parses a bracket record into a KindFlow sample.
func (p *CSVParser) DecodeSample(record []byte, at time.Time) (model.Sample, error) {
	if len(record) < 2 || record[0] != '[' || record[len(record)-1] != ']' {
		return model.Sample{}, fmt.Errorf("%w: expected [flow,current,power,voltage]", ErrMalformedRecord)
	}
	parts := bytes.Split(record[1:len(record)-1], []byte{','})
	if len(parts) != len(legacyFields) {
		return model.Sample{}, fmt.Errorf("%w: expected %d fields, got %d",
			ErrMalformedRecord, len(legacyFields), len(parts))
	}
	fields := make(map[string]float64, len(legacyFields))
	for i, part := range parts {
		v, err := strconv.ParseFloat(string(bytes.TrimSpace(part)), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Sample{}, fmt.Errorf("%w: invalid %s", ErrMalformedRecord, legacyFields[i])
		}
		fields[legacyFields[i]] = v
	}
	return model.Sample{At: at, Fields: fields, Kind: model.KindFlow}, nil
}

// EncodeSample renders a sample as a bracket record, missing fields as 0.
func (p *CSVParser) EncodeSample(s model.Sample) string {
	return fmt.Sprintf("[%s,%s,%s,%s]",
		formatFloat(s.Value(model.FieldFlow)),
		formatFloat(s.Value(model.FieldCurrent)),
		formatFloat(s.Value(model.FieldPower)),
		formatFloat(s.Value(model.FieldVoltage)))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Package parser turns raw serial bytes into telemetry samples and commands
// into wire records.
//
// Telemetry wire format (firmware -> station), one record per line:
//
//	{"motor_cmd_v": 1.23}
//	{"voltage": 1.23, "current": 0.45, "UR": 10, "LR": 20, "power": 30, "charge": 80}
//	[flow,current,power,voltage]
//
// Command wire format (station -> firmware):
//
//	{"action":"SIMULINK_ANALOG","value":2.5}
package parser

import (
	"errors"
	"time"

	"Hydrosync/internal/model"
)

// ErrMalformedRecord marks a record that could not be decoded. Such records
// are dropped and counted, never retried.
var ErrMalformedRecord = errors.New("malformed record")

// ErrEncodingFailure marks a command that cannot be serialized.
var ErrEncodingFailure = errors.New("command encoding failed")

// Parser decodes one framed record into a sample stamped with its arrival time.
type Parser interface {
	DecodeSample(record []byte, at time.Time) (model.Sample, error)
}

// AutoParser dispatches on the first byte of a record: JSON objects go to the
// JSON parser and bracket records to the legacy CSV parser.
type AutoParser struct {
	json *JSONParser
	csv  *CSVParser
}

// NewAutoParser creates a parser accepting every firmware format.
func NewAutoParser() *AutoParser {
	return &AutoParser{json: NewJSONParser(), csv: NewCSVParser()}
}

// DecodeSample implements Parser.
func (p *AutoParser) DecodeSample(record []byte, at time.Time) (model.Sample, error) {
	if len(record) > 0 && record[0] == '[' {
		return p.csv.DecodeSample(record, at)
	}
	return p.json.DecodeSample(record, at)
}

package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"Hydrosync/internal/model"
)

// powerFields identify the generator firmware schema.
var powerFields = []string{
	model.FieldVoltage, model.FieldCurrent, model.FieldPower,
	model.FieldUR, model.FieldLR, model.FieldCharge,
}

// JSONParser decodes JSON telemetry objects and encodes JSON commands.
type JSONParser struct{}

// NewJSONParser creates a new JSON parser.
func NewJSONParser() *JSONParser { return &JSONParser{} }

// DecodeSample parses a JSON object record. Numeric fields are copied as is,
// booleans become 0/1 and numeric strings are parsed; other values are
// ignored. Anything that is not a JSON object, or an object without a single
// numeric field, yields ErrMalformedRecord.
func (p *JSONParser) DecodeSample(record []byte, at time.Time) (model.Sample, error) {
	dec := json.NewDecoder(bytes.NewReader(record))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return model.Sample{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if raw == nil {
		return model.Sample{}, fmt.Errorf("%w: not a json object", ErrMalformedRecord)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return model.Sample{}, fmt.Errorf("%w: trailing data after object", ErrMalformedRecord)
	}

	fields := make(map[string]float64, len(raw))
	for k, v := range raw {
		if f, ok := coerce(v); ok {
			fields[k] = f
		}
	}
	if len(fields) == 0 {
		return model.Sample{}, fmt.Errorf("%w: no numeric fields", ErrMalformedRecord)
	}
	return model.Sample{At: at, Fields: fields, Kind: classify(fields)}, nil
}

// EncodeCommand serializes cmd as a single compact JSON line terminated by
// the delimiter.
func (p *JSONParser) EncodeCommand(cmd model.Command) ([]byte, error) {
	if !cmd.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrEncodingFailure, cmd.Action)
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	return append(b, Delimiter), nil
}

// DecodeCommand parses a command record the way the firmware does.
func (p *JSONParser) DecodeCommand(record []byte) (model.Command, error) {
	var cmd model.Command
	if err := json.Unmarshal(bytes.Trim(record, trimSet), &cmd); err != nil {
		return model.Command{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if !cmd.Action.Valid() {
		return model.Command{}, fmt.Errorf("%w: unknown action %q", ErrMalformedRecord, cmd.Action)
	}
	return cmd, nil
}

func coerce(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case bool:
		if x {
			f = 1
		}
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func classify(fields map[string]float64) model.Kind {
	if _, ok := fields[model.FieldMotorCmdV]; ok {
		return model.KindMotor
	}
	for _, k := range powerFields {
		if _, ok := fields[k]; ok {
			return model.KindPower
		}
	}
	return model.KindGeneric
}

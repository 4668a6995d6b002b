// Package recorder appends applied telemetry samples to a CSV side log.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"Hydrosync/internal/model"
	"Hydrosync/internal/syncutil"
)

// TimestampLayout is the format of the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Row is one line of the log. The first five columns keep the layout of the
// bench's older flow logger so existing spreadsheets still line up.
type Row struct {
	Timestamp string  `csv:"timestamp"`
	Flow      float64 `csv:"flow(L_s)"`
	Current   float64 `csv:"current(A)"`
	Power     float64 `csv:"power(W)"`
	Voltage   float64 `csv:"voltage(V)"`
	UR        float64 `csv:"UR"`
	LR        float64 `csv:"LR"`
	Charge    float64 `csv:"charge"`
	MotorCmdV float64 `csv:"motor_cmd_v"`
	Kind      string  `csv:"kind"`
}

// NewRow flattens a sample into a row; missing fields are 0.
func NewRow(s model.Sample) Row {
	return Row{
		Timestamp: s.At.Format(TimestampLayout),
		Flow:      s.Value(model.FieldFlow),
		Current:   s.Value(model.FieldCurrent),
		Power:     s.Value(model.FieldPower),
		Voltage:   s.Value(model.FieldVoltage),
		UR:        s.Value(model.FieldUR),
		LR:        s.Value(model.FieldLR),
		Charge:    s.Value(model.FieldCharge),
		MotorCmdV: s.Value(model.FieldMotorCmdV),
		Kind:      s.Kind.String(),
	}
}

// CSV appends rows to a file. The header is written only when the file
// starts out empty.
type CSV struct {
	file       afero.File
	path       string
	failures   atomic.Int64
	mu         syncutil.Mutex
	needHeader bool
}

// Open opens (or creates) path on fs for appending.
func Open(fs afero.Fs, path string) (*CSV, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv log %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat csv log %s: %w", path, err)
	}
	return &CSV{file: f, path: path, needHeader: info.Size() == 0}, nil
}

// Record appends one row. Failures are logged and counted, never returned,
// so a full disk cannot stall the consumer.
func (r *CSV) Record(s model.Sample) {
	if err := r.Write(NewRow(s)); err != nil {
		r.failures.Add(1)
		log.Error().Err(err).Str("component", "recorder").Str("path", r.path).Msg("failed to record sample")
	}
}

// Write appends rows to the file.
func (r *CSV) Write(rows ...Row) error {
	if len(rows) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return fmt.Errorf("csv log %s is closed", r.path)
	}
	var err error
	if r.needHeader {
		err = gocsv.Marshal(rows, r.file)
	} else {
		err = gocsv.MarshalWithoutHeaders(rows, r.file)
	}
	if err != nil {
		return fmt.Errorf("write csv log %s: %w", r.path, err)
	}
	r.needHeader = false
	return nil
}

// Failures returns how many samples could not be recorded.
func (r *CSV) Failures() int64 {
	return r.failures.Load()
}

// Close closes the file. Later writes fail.
func (r *CSV) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	if err != nil {
		return fmt.Errorf("close csv log %s: %w", r.path, err)
	}
	return nil
}

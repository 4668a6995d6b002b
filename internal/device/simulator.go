package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"Hydrosync/internal/model"
	"Hydrosync/internal/parser"
	"Hydrosync/internal/syncutil"
)

// Simulator plays the bench firmware on the far end of a link: it emits
// telemetry in the configured schema and obeys START, STOP and
// SIMULINK_ANALOG commands.
type Simulator struct {
	conn     Conn
	Clock    clockwork.Clock
	codec    *parser.JSONParser
	legacy   *parser.CSVParser
	ID       string
	Interval time.Duration
	LoadOhms float64
	Noise    float64
	Mode     model.Kind
	mu       syncutil.Mutex
	setpoint float64
	charge   float64
	running  bool
}

// NewSimulator creates a simulator writing to conn every interval.
func NewSimulator(id string, conn Conn, mode model.Kind, interval time.Duration) *Simulator {
	return &Simulator{
		conn:     conn,
		Clock:    clockwork.NewRealClock(),
		codec:    parser.NewJSONParser(),
		legacy:   parser.NewCSVParser(),
		ID:       id,
		Interval: interval,
		LoadOhms: 220,
		Noise:    0.01,
		Mode:     mode,
		charge:   50,
	}
}

// HandleCommand applies a decoded command to the simulated firmware state.
func (s *Simulator) HandleCommand(cmd model.Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch cmd.Action {
	case model.ActionStart:
		s.running = true
	case model.ActionStop:
		s.running = false
	case model.ActionAnalog:
		if cmd.Value != nil {
			s.setpoint = *cmd.Value
		}
	}
}

// Running reports whether a START is in effect.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Setpoint returns the last analog setpoint received.
func (s *Simulator) Setpoint() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setpoint
}

// NextRecord renders the next telemetry record, without the delimiter.
func (s *Simulator) NextRecord() ([]byte, error) {
	s.mu.Lock()
	v := 0.0
	if s.running {
		v = s.setpoint + (rand.Float64()-0.5)*2*s.Noise
	}
	load := s.LoadOhms
	if load <= 0 {
		load = 220
	}
	i := v / load
	if s.running {
		s.charge = min(100, s.charge+0.1)
	} else {
		s.charge = max(0, s.charge-0.05)
	}
	charge := s.charge
	s.mu.Unlock()

	switch s.Mode {
	case model.KindPower:
		return json.Marshal(map[string]float64{
			model.FieldVoltage: v,
			model.FieldCurrent: i,
			model.FieldUR:      v * 0.5,
			model.FieldLR:      v * 0.5,
			model.FieldPower:   v * i,
			model.FieldCharge:  charge,
		})
	case model.KindFlow:
		return []byte(s.legacy.EncodeSample(model.Sample{Fields: map[string]float64{
			model.FieldFlow:    v * 0.2,
			model.FieldCurrent: i,
			model.FieldPower:   v * i,
			model.FieldVoltage: v,
		}})), nil
	default:
		return json.Marshal(map[string]float64{model.FieldMotorCmdV: v})
	}
}

// Run emits telemetry and consumes commands until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	log.Info().Str("component", "simulator").Str("id", s.ID).
		Str("mode", s.Mode.String()).Dur("interval", s.Interval).Msg("simulator started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.readCommands(ctx)
	}()
	defer wg.Wait()

	ticker := s.Clock.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("component", "simulator").Str("id", s.ID).Msg("simulation stopped")
			return nil
		case <-ticker.Chan():
			rec, err := s.NextRecord()
			if err != nil {
				return fmt.Errorf("render telemetry: %w", err)
			}
			if _, err := s.conn.Write(append(rec, parser.Delimiter)); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				log.Warn().Err(err).Str("component", "simulator").Msg("simulate write error")
			}
		}
	}
}

func (s *Simulator) readCommands(ctx context.Context) {
	splitter := parser.NewSplitter()
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := s.conn.Read(buf)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			log.Debug().Err(err).Str("component", "simulator").Msg("command read error")
			s.Clock.Sleep(100 * time.Millisecond)
			continue
		}
		for _, rec := range splitter.Feed(buf[:n]) {
			cmd, err := s.codec.DecodeCommand(rec)
			if err != nil {
				log.Warn().Err(err).Str("component", "simulator").Bytes("record", rec).Msg("ignoring command")
				continue
			}
			log.Info().Str("component", "simulator").Str("action", string(cmd.Action)).Msg("command received")
			s.HandleCommand(cmd)
		}
	}
}

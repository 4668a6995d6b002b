package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"Hydrosync/internal/device"
	"Hydrosync/internal/model"
	"Hydrosync/internal/parser"
	"Hydrosync/internal/syncutil"
)

// Commander encodes operator actions and writes them to the device. It
// tracks the running state and analog setpoint last acknowledged by a
// successful write. Readers of that state never wait on a pending write.
type Commander struct {
	conn      device.Conn
	codec     *parser.JSONParser
	metrics   *Metrics
	analogMax float64
	setpoint  atomic.Uint64
	running   atomic.Bool
	connMu    syncutil.RWMutex
	// sendMu serializes state transitions only.
	sendMu syncutil.Mutex
}

// NewCommander returns a commander writing to conn, which may be nil until
// a connection is attached.
func NewCommander(conn device.Conn, analogMax float64, m *Metrics) *Commander {
	if m == nil {
		m = NewMetrics(nil)
	}
	return &Commander{conn: conn, codec: parser.NewJSONParser(), analogMax: analogMax, metrics: m}
}

// Attach sets the connection commands are written to. nil detaches.
func (c *Commander) Attach(conn device.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.conn = conn
}

// Send encodes one command and writes it. It fails with ErrWriteFailure
// when no connection is attached or the write fails, and with
// ErrEncodingFailure for an invalid action or value.
func (c *Commander) Send(ctx context.Context, action model.Action, value *float64) error {
	line, err := c.codec.EncodeCommand(model.Command{Action: action, Value: value})
	if err != nil {
		c.metrics.CommandsFailed.WithLabelValues(string(action)).Inc()
		return err
	}
	if err := ctx.Err(); err != nil {
		c.metrics.CommandsFailed.WithLabelValues(string(action)).Inc()
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		c.metrics.CommandsFailed.WithLabelValues(string(action)).Inc()
		return fmt.Errorf("%w: device not connected", ErrWriteFailure)
	}
	if _, err := conn.Write(line); err != nil {
		c.metrics.CommandsFailed.WithLabelValues(string(action)).Inc()
		if errors.Is(err, device.ErrClosed) {
			return fmt.Errorf("%w: device not connected", ErrWriteFailure)
		}
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	c.metrics.CommandsSent.WithLabelValues(string(action)).Inc()
	log.Debug().Str("component", "commander").Bytes("line", line[:len(line)-1]).Msg("command sent")
	return nil
}

// Start sends START unless the motor is already running.
func (c *Commander) Start(ctx context.Context) error {
	return c.setRunning(ctx, true)
}

// Stop sends STOP unless the motor is already stopped.
func (c *Commander) Stop(ctx context.Context) error {
	return c.setRunning(ctx, false)
}

func (c *Commander) setRunning(ctx context.Context, running bool) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.running.Load() == running {
		return nil
	}
	action := model.ActionStop
	if running {
		action = model.ActionStart
	}
	if err := c.Send(ctx, action, nil); err != nil {
		return err
	}
	c.running.Store(running)
	log.Info().Str("component", "commander").Bool("running", running).Msg("motor state changed")
	return nil
}

// SetAnalog clamps v to [0, AnalogMax] and sends it as the analog setpoint.
// It returns the value actually sent.
func (c *Commander) SetAnalog(ctx context.Context, v float64) (float64, error) {
	v = clamp(v, 0, c.analogMax)
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.Send(ctx, model.ActionAnalog, model.Float(v)); err != nil {
		return v, err
	}
	c.setpoint.Store(math.Float64bits(v))
	return v, nil
}

// Apply dispatches a decoded command through Start, Stop or SetAnalog.
func (c *Commander) Apply(ctx context.Context, cmd model.Command) error {
	switch cmd.Action {
	case model.ActionStart:
		return c.Start(ctx)
	case model.ActionStop:
		return c.Stop(ctx)
	case model.ActionAnalog:
		if cmd.Value == nil {
			return fmt.Errorf("%w: %s requires a value", ErrEncodingFailure, cmd.Action)
		}
		_, err := c.SetAnalog(ctx, *cmd.Value)
		return err
	default:
		return fmt.Errorf("%w: unknown action %q", ErrEncodingFailure, cmd.Action)
	}
}

// Running reports the last acknowledged motor state.
func (c *Commander) Running() bool {
	return c.running.Load()
}

// Setpoint returns the last acknowledged analog setpoint.
func (c *Commander) Setpoint() float64 {
	return math.Float64frombits(c.setpoint.Load())
}

// AnalogMax returns the upper bound of the analog setpoint.
func (c *Commander) AnalogMax() float64 { return c.analogMax }

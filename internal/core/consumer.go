package core

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"Hydrosync/internal/model"
)

// Renderer receives a view after every tick that applied samples. Render
// is called from the consumer goroutine and must not block.
type Renderer interface {
	Render(view model.View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(view model.View)

// Render calls f(view).
func (f RendererFunc) Render(view model.View) { f(view) }

// SampleRecorder persists applied samples, e.g. to a CSV log.
type SampleRecorder interface {
	Record(s model.Sample)
}

// Consumer drains the queue on a fixed period, folds samples into the
// rolling buffers and publishes a view.
type Consumer struct {
	Clock    clockwork.Clock
	Recorder SampleRecorder
	// Setpoint reports the last analog command, for the analog gauge.
	Setpoint  func() float64
	queue     *Queue
	buffers   *BufferSet
	renderer  Renderer
	metrics   *Metrics
	last      atomic.Pointer[model.View]
	period    time.Duration
	analogMax float64
	seq       uint64
	load      atomic.Uint64
	lastKind  model.Kind
}

// NewConsumer builds a consumer reading q every period into windows of
// bufferSize values.
func NewConsumer(q *Queue, bufferSize int, period time.Duration, set Settings, r Renderer, m *Metrics) *Consumer {
	if m == nil {
		m = NewMetrics(nil)
	}
	c := &Consumer{
		Clock:     clockwork.NewRealClock(),
		queue:     q,
		buffers:   NewBufferSet(bufferSize),
		renderer:  r,
		metrics:   m,
		period:    period,
		analogMax: set.AnalogMax,
	}
	c.SetLoad(set.LoadOhms)
	return c
}

// SetLoad changes the load resistance used for motor samples. It is safe
// to call while Run is active.
func (c *Consumer) SetLoad(ohms float64) {
	c.load.Store(math.Float64bits(ohms))
}

// Load returns the current load resistance.
func (c *Consumer) Load() float64 {
	return math.Float64frombits(c.load.Load())
}

// Settings returns the parameters the next tick will derive with.
func (c *Consumer) Settings() Settings {
	return Settings{LoadOhms: c.Load(), AnalogMax: c.analogMax}
}

// Buffers exposes the rolling windows. Only the consumer goroutine may
// touch them while Run is active.
func (c *Consumer) Buffers() *BufferSet {
	return c.buffers
}

// LastView returns the most recently rendered view.
func (c *Consumer) LastView() (model.View, bool) {
	v := c.last.Load()
	if v == nil {
		return model.View{}, false
	}
	return *v, true
}

// Run ticks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	ticker := c.Clock.NewTicker(c.period)
	defer ticker.Stop()
	log.Debug().Str("component", "consumer").Dur("period", c.period).Msg("consumer started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("component", "consumer").Msg("consumer stopped")
			return nil
		case <-ticker.Chan():
			c.Tick()
		}
	}
}

// Tick applies every queued sample and renders once if any of them
// produced channel values. It reports whether a view was rendered.
func (c *Consumer) Tick() bool {
	samples := c.queue.Drain()
	if len(samples) == 0 {
		return false
	}
	start := time.Now()
	defer func() { c.metrics.TickDuration.Observe(time.Since(start).Seconds()) }()

	set := c.Settings()
	applied := 0
	for _, s := range samples {
		resolved := c.resolve(s)
		values := Derive(resolved, set)
		if values == nil {
			continue
		}
		for ch, v := range values {
			c.buffers.Append(ch, v)
		}
		c.lastKind = resolved.Kind
		applied++
		if c.Recorder != nil {
			c.Recorder.Record(s)
		}
	}
	if applied == 0 {
		return false
	}

	view := c.buildView(applied)
	c.last.Store(&view)
	c.metrics.Renders.Inc()
	if c.renderer != nil {
		c.renderer.Render(view)
	}
	return true
}

// resolve plots a generic sample as the firmware mode seen last, motor
// before any, so its unknown keys read as missing fields.
func (c *Consumer) resolve(s model.Sample) model.Sample {
	if s.Kind != model.KindGeneric {
		return s
	}
	s.Kind = c.lastKind
	if s.Kind == model.KindGeneric {
		s.Kind = model.KindMotor
	}
	return s
}

func (c *Consumer) buildView(applied int) model.View {
	c.seq++
	view := model.View{
		At:       c.Clock.Now(),
		Channels: c.buffers.Snapshot(),
		Latest:   make(map[string]float64),
		Gauges:   make(map[string]float64),
		Units:    Units(c.lastKind),
		Kind:     c.lastKind.String(),
		Seq:      c.seq,
		Applied:  applied,
	}
	for _, ch := range c.buffers.Channels() {
		if v, ok := c.buffers.Ring(ch).Last(); ok {
			view.Latest[ch] = v
		}
	}
	lo, hi, _ := c.buffers.Bounds()
	view.YMin, view.YMax = model.Autoscale(lo, hi)

	if charge, ok := view.Latest[model.ChannelCharge]; ok {
		view.Gauges[model.GaugeCharge] = clamp(charge, 0, 100)
	}
	setpoint := 0.0
	if c.Setpoint != nil {
		setpoint = c.Setpoint()
	}
	view.Gauges[model.GaugeAnalog] = Percent(setpoint, c.analogMax)
	return view
}

// Package core wires the telemetry pipeline: a producer that turns serial
// bytes into samples, an unbounded queue, and a consumer that folds samples
// into rolling windows for the renderer. Station owns their lifecycle.
package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"Hydrosync/internal/device"
	"Hydrosync/internal/model"
	"Hydrosync/internal/syncutil"
)

// Service is an extra task run alongside the pipeline, such as the
// dashboard server. It must return once ctx is cancelled.
type Service func(ctx context.Context) error

// Status summarizes the station for the dashboard.
type Status struct {
	Port       string  `json:"port"`
	LastError  string  `json:"last_error,omitempty"`
	Baud       int     `json:"baud"`
	QueueDepth int     `json:"queue_depth"`
	LoadOhms   float64 `json:"load_ohms"`
	Setpoint   float64 `json:"setpoint"`
	AnalogMax  float64 `json:"analog_max"`
	Seq        uint64  `json:"seq"`
	Connected  bool    `json:"connected"`
	Running    bool    `json:"running"`
}

// Station manages the connection, the producer, the consumer and any
// attached services.
type Station struct {
	cfg       *model.Config
	opener    device.Opener
	Queue     *Queue
	Consumer  *Consumer
	Commander *Commander
	Metrics   *Metrics
	Registry  *prometheus.Registry
	conn      device.Conn
	lastErr   atomic.Value
	closeOnce sync.Once
	connMu    syncutil.Mutex
	startLock syncutil.Mutex
	connected atomic.Bool
	started   bool
}

// NewStation builds a station from cfg. renderer and recorder may be nil.
func NewStation(cfg *model.Config, opener device.Opener, renderer Renderer, recorder SampleRecorder) *Station {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	q := NewQueue()
	m.WatchQueue(q)

	cmd := NewCommander(nil, cfg.Bench.AnalogMaxV, m)
	consumer := NewConsumer(q, cfg.Pipeline.BufferSize, cfg.Pipeline.ConsumerPeriod(), Settings{
		LoadOhms:  cfg.Bench.LoadOhms,
		AnalogMax: cfg.Bench.AnalogMaxV,
	}, renderer, m)
	consumer.Setpoint = cmd.Setpoint
	if recorder != nil {
		consumer.Recorder = recorder
	}

	return &Station{
		cfg:       cfg,
		opener:    opener,
		Queue:     q,
		Consumer:  consumer,
		Commander: cmd,
		Metrics:   m,
		Registry:  reg,
	}
}

// Connect opens the configured port and attaches it to the commander.
func (s *Station) Connect() (device.Conn, error) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}
	sc := s.cfg.Serial
	conn, err := s.opener(sc.Port, sc.Baud, sc.ReadTimeout())
	if err != nil {
		s.lastErr.Store(err.Error())
		return nil, err
	}
	s.conn = conn
	s.Commander.Attach(conn)
	s.connected.Store(true)
	log.Info().Str("component", "station").Str("port", sc.Port).Int("baud", sc.Baud).Msg("serial link open")
	return conn, nil
}

// Run connects and runs the pipeline plus services until ctx is cancelled
// or a service fails. An unavailable port is not fatal: the station keeps
// serving without live telemetry.
func (s *Station) Run(ctx context.Context, services ...Service) error {
	s.startLock.Lock()
	if s.started {
		s.startLock.Unlock()
		return errors.New("station already started")
	}
	s.started = true
	s.startLock.Unlock()

	conn, err := s.Connect()
	if err != nil {
		if !errors.Is(err, ErrPortUnavailable) {
			return err
		}
		log.Warn().Err(err).Str("component", "station").Msg("running without live telemetry")
	}

	g, gctx := errgroup.WithContext(ctx)
	if conn != nil {
		producer := NewProducer(conn, s.Queue, s.Metrics)
		producer.RetryDelay = s.cfg.Serial.RetryDelay()
		producer.MaxConsecutiveErrors = s.cfg.Serial.MaxConsecutiveErrors
		g.Go(func() error {
			if err := producer.Run(gctx); err != nil {
				log.Error().Err(err).Str("component", "station").Msg("telemetry reader stopped")
				s.lastErr.Store(err.Error())
				s.connected.Store(false)
			}
			return nil
		})
	}
	g.Go(func() error {
		return s.Consumer.Run(gctx)
	})
	for _, svc := range services {
		g.Go(func() error {
			return svc(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.Stop()
		return nil
	})

	err = g.Wait()
	log.Info().Str("component", "station").Msg("station stopped")
	return err
}

// Stop closes the connection. Only the first call has any effect.
func (s *Station) Stop() {
	s.closeOnce.Do(func() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()
		s.connected.Store(false)
		if conn == nil {
			return
		}
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Str("component", "station").Msg("failed to close serial link")
		}
	})
}

// Status reports connection state, queue depth and bench settings.
func (s *Station) Status() Status {
	st := Status{
		Port:       s.cfg.Serial.Port,
		Baud:       s.cfg.Serial.Baud,
		Connected:  s.connected.Load(),
		QueueDepth: s.Queue.Len(),
		LoadOhms:   s.Consumer.Load(),
		Setpoint:   s.Commander.Setpoint(),
		AnalogMax:  s.Commander.AnalogMax(),
		Running:    s.Commander.Running(),
	}
	if msg, ok := s.lastErr.Load().(string); ok {
		st.LastError = msg
	}
	if v, ok := s.Consumer.LastView(); ok {
		st.Seq = v.Seq
	}
	return st
}

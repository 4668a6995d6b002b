package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"Hydrosync/internal/device"
	"Hydrosync/internal/parser"
)

const readChunkSize = 1024

// Producer reads the serial link, reassembles records, decodes them and
// queues the resulting samples. It is the only owner of its Splitter.
type Producer struct {
	Clock clockwork.Clock
	// RetryDelay is the pause after a transient read error.
	RetryDelay time.Duration
	// MaxConsecutiveErrors ends Run once exceeded. Zero retries forever.
	MaxConsecutiveErrors int
	conn                 device.Conn
	queue                *Queue
	decoder              parser.Parser
	splitter             *parser.Splitter
	metrics              *Metrics
}

// NewProducer returns a producer feeding q from conn.
func NewProducer(conn device.Conn, q *Queue, m *Metrics) *Producer {
	if m == nil {
		m = NewMetrics(nil)
	}
	return &Producer{
		Clock:                clockwork.NewRealClock(),
		RetryDelay:           100 * time.Millisecond,
		MaxConsecutiveErrors: 50,
		conn:                 conn,
		queue:                q,
		decoder:              parser.NewAutoParser(),
		splitter:             parser.NewSplitter(),
		metrics:              m,
	}
}

// Run reads until ctx is cancelled or the connection is closed, both of
// which return nil. Too many consecutive read errors return an error
// wrapping ErrConnectionFailure.
func (p *Producer) Run(ctx context.Context) error {
	buf := make([]byte, readChunkSize)
	failures := 0
	log.Debug().Str("component", "producer").Msg("producer started")
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := p.conn.Read(buf)
		if n > 0 {
			p.metrics.BytesRead.Add(float64(n))
			p.ingest(buf[:n])
		}
		if err == nil {
			failures = 0
			continue
		}
		if errors.Is(err, device.ErrClosed) || ctx.Err() != nil {
			log.Debug().Str("component", "producer").Msg("producer stopped")
			return nil
		}

		failures++
		p.metrics.ReadErrors.Inc()
		if p.MaxConsecutiveErrors > 0 && failures > p.MaxConsecutiveErrors {
			return fmt.Errorf("%w: giving up after %d consecutive read errors: %w",
				ErrConnectionFailure, failures, err)
		}
		log.Warn().Err(err).Str("component", "producer").Int("failures", failures).Msg("read error, retrying")
		if p.RetryDelay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-p.Clock.After(p.RetryDelay):
		}
	}
}

// ingest splits chunk into records and queues every one that decodes.
func (p *Producer) ingest(chunk []byte) {
	overflows := p.splitter.Overflows()
	records := p.splitter.Feed(chunk)
	if p.splitter.Overflows() > overflows {
		p.metrics.MalformedRecords.Inc()
		log.Warn().Str("component", "producer").Int("limit", parser.MaxRecordLen).
			Msg("discarded oversized partial record")
	}

	now := p.Clock.Now()
	for _, rec := range records {
		s, err := p.decoder.DecodeSample(rec, now)
		if err != nil {
			p.metrics.MalformedRecords.Inc()
			log.Debug().Err(err).Str("component", "producer").Bytes("record", rec).Msg("dropping record")
			continue
		}
		p.queue.Push(s)
		p.metrics.SamplesDecoded.WithLabelValues(s.Kind.String()).Inc()
	}
}

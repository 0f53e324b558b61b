// Package service fetches client payloads from the polled endpoint and turns
// each fetch into a sequenced tick for the reconciler.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"wifiwatch-tui/internal/client"
	"wifiwatch-tui/internal/telemetry"
)

// Recorder receives every successfully fetched raw payload.
type Recorder interface {
	Record(seq uint64, at time.Time, body []byte) error
}

// Tick is the outcome of one fetch. Records is only meaningful when Err is
// nil; a failed tick must leave the rendered state untouched.
type Tick struct {
	Seq       uint64
	StartedAt time.Time
	Duration  time.Duration
	Records   []client.Record
	Err       error
}

type Poller struct {
	source   Source
	recorder Recorder
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	timeout  time.Duration

	seq atomic.Uint64
}

type PollerOption func(*Poller)

func WithRecorder(recorder Recorder) PollerOption {
	return func(p *Poller) {
		p.recorder = recorder
	}
}

func WithMetrics(metrics *telemetry.Metrics) PollerOption {
	return func(p *Poller) {
		p.metrics = metrics
	}
}

func WithLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

// WithTimeout bounds a single fetch in addition to the source's own limits.
func WithTimeout(timeout time.Duration) PollerOption {
	return func(p *Poller) {
		p.timeout = timeout
	}
}

func NewPoller(source Source, opts ...PollerOption) *Poller {
	p := &Poller{source: source, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next issues the sequence number for a tick about to start.
func (p *Poller) Next() uint64 {
	return p.seq.Add(1)
}

// Poll performs one fetch, records the raw payload and parses it.
func (p *Poller) Poll(ctx context.Context, seq uint64) Tick {
	tick := Tick{Seq: seq, StartedAt: time.Now()}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	body, err := p.source.Fetch(ctx)
	tick.Duration = time.Since(tick.StartedAt)
	if errors.Is(err, ErrExhausted) {
		// End of a replay is not a fetch.
		tick.Err = fmt.Errorf("fetch tick %d: %w", seq, err)
		return tick
	}
	p.metrics.ObserveFetch(tick.Duration, err)
	if err != nil {
		tick.Err = fmt.Errorf("fetch tick %d: %w", seq, err)
		p.logger.Warn("fetch failed", "seq", seq, "error", err)
		return tick
	}

	if p.recorder != nil {
		if err := p.recorder.Record(seq, tick.StartedAt, body); err != nil {
			p.logger.Warn("record payload failed", "seq", seq, "error", err)
		}
	}

	records, err := client.Parse(body)
	if err != nil {
		tick.Err = fmt.Errorf("parse tick %d: %w", seq, err)
		p.metrics.ObserveTick(telemetry.OutcomeDecodeError)
		p.logger.Warn("payload rejected", "seq", seq, "bytes", len(body), "error", err)
		return tick
	}
	tick.Records = records
	p.logger.Debug("fetched clients", "seq", seq, "records", len(records), "duration", tick.Duration)
	return tick
}

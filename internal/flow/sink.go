package flow

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SecondaryResult is the outcome of the best-effort counter increment sent
// to the backend after an accepted contribution. It never changes the flow
// state or the submission Result.
type SecondaryResult struct {
	Session  string
	Err      error
	Duration time.Duration
}

// Sink receives secondary results. Implementations must be safe for
// concurrent use.
type Sink interface {
	Report(ctx context.Context, r SecondaryResult)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r SecondaryResult)

func (f SinkFunc) Report(ctx context.Context, r SecondaryResult) { f(ctx, r) }

// LogSink logs secondary results with the global logger.
type LogSink struct{}

func (LogSink) Report(_ context.Context, r SecondaryResult) {
	if r.Err != nil {
		log.Warn().
			Str("sessionId", r.Session).
			Dur("duration", r.Duration).
			Err(r.Err).
			Msg("Counter increment failed")
		return
	}
	log.Debug().
		Str("sessionId", r.Session).
		Dur("duration", r.Duration).
		Msg("Counter increment delivered")
}

// Sinks fans a result out to several sinks in order.
type Sinks []Sink

func (s Sinks) Report(ctx context.Context, r SecondaryResult) {
	for _, sink := range s {
		if sink != nil {
			sink.Report(ctx, r)
		}
	}
}

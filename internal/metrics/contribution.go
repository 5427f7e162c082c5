package metrics

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/smartdog/pet-contribution/internal/backend"
	"github.com/smartdog/pet-contribution/internal/flow"
)

// Outcome labels for submission metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport"
	OutcomeDecode    = "decode"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Outcome classifies a submission error. A nil error is a success.
func Outcome(err error) string {
	var verr *flow.ValidationError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &verr):
		return OutcomeInvalid
	case errors.Is(err, backend.ErrRejected):
		return OutcomeRejected
	case errors.Is(err, backend.ErrDecode):
		return OutcomeDecode
	case errors.Is(err, backend.ErrTransport):
		return OutcomeTransport
	}
	return OutcomeError
}

// Emitter writes contribution metrics. The zero value writes to stdout.
type Emitter struct {
	Out io.Writer
}

var _ flow.Sink = Emitter{}

func (e Emitter) recorder() *Recorder {
	out := e.Out
	if out == nil {
		out = os.Stdout
	}
	return NewTo(out, Namespace)
}

// Submission records one submission attempt and its latency.
func (e Emitter) Submission(variant string, err error, d time.Duration, photos int) {
	outcome := Outcome(err)
	e.recorder().
		Dimension("Variant", variant).
		Dimension("Outcome", outcome).
		Count("Submissions").
		Duration("SubmitLatency", d).
		Metric("Photos", float64(photos), UnitCount).
		Flush()
}

// Report implements flow.Sink for the background counter increment.
func (e Emitter) Report(_ context.Context, r flow.SecondaryResult) {
	rec := e.recorder().
		Dimension("Operation", "counterIncrement").
		Duration("IncrementLatency", r.Duration).
		Property("sessionId", r.Session)
	if r.Err != nil {
		rec.Count("IncrementFailures").Property("error", r.Err.Error())
	} else {
		rec.Count("IncrementDelivered")
	}
	rec.Flush()
}

package ack

import (
	"context"
	"time"

	"github.com/mcdev12/cascade/go/internal/phase"
	"github.com/rs/zerolog/log"
)

// Ack reports the actual completion timing of one phase back to the
// cascade authority.
type Ack struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	Phase       phase.Name `json:"phase"`
	StepIndex   int        `json:"step_index"`
	CompletedAt time.Time  `json:"completed_at"`
	DurationMs  int64      `json:"duration_ms"`
}

// Dispatcher transmits acknowledgments fire-and-forget. Implementations
// must not block the presentation pipeline; a failed dispatch is the
// caller's to log, never to propagate.
type Dispatcher interface {
	Dispatch(ctx context.Context, a Ack) error
}

// LogDispatcher is an in-memory dispatcher for development: it logs each
// acknowledgment and always succeeds.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, a Ack) error {
	log.Info().
		Str("ack_id", a.ID).
		Str("session_id", a.SessionID).
		Str("phase", string(a.Phase)).
		Int("step_index", a.StepIndex).
		Int64("duration_ms", a.DurationMs).
		Msg("dispatching phase acknowledgment")
	return nil
}

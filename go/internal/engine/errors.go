package engine

import (
	"time"

	"github.com/mcdev12/cascade/go/internal/phase"
	"github.com/rs/zerolog/log"
)

// syncErrorLimit bounds the in-memory error log; the oldest entry is
// evicted first.
const syncErrorLimit = 10

// SyncError is one recorded synchronization fault.
type SyncError struct {
	At        time.Time  `json:"at"`
	Phase     phase.Name `json:"phase"`
	StepIndex int        `json:"step_index"`
	Message   string     `json:"message"`
}

func (e *Engine) logSyncErrorLocked(p phase.Name, msg string) {
	rec := SyncError{
		At:        e.clock.Now(),
		Phase:     p,
		StepIndex: e.stepIndex,
		Message:   msg,
	}
	e.syncErrors = append(e.syncErrors, rec)
	if n := len(e.syncErrors); n > syncErrorLimit {
		e.syncErrors = e.syncErrors[n-syncErrorLimit:]
	}

	log.Warn().
		Str("session_id", e.sessionID).
		Str("phase", string(p)).
		Int("step_index", rec.StepIndex).
		Msg(msg)
}

// SyncErrors returns a copy of the recorded error log, oldest first.
func (e *Engine) SyncErrors() []SyncError {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SyncError, len(e.syncErrors))
	copy(out, e.syncErrors)
	return out
}

package engine

import (
	"github.com/mcdev12/cascade/go/internal/phase"
	"github.com/rs/zerolog/log"
)

// ClearPhaseAnimations cancels any residual sub-animations registered for
// one phase. Calling it again for the same phase is a no-op.
func (e *Engine) ClearPhaseAnimations(p phase.Name) {
	e.mu.Lock()
	e.clearPhaseAnimationsLocked(p)
	e.mu.Unlock()
}

func (e *Engine) clearPhaseAnimationsLocked(p phase.Name) {
	anims := e.animations[p]
	if len(anims) == 0 {
		return
	}
	for _, a := range anims {
		a.Cancel()
	}
	delete(e.animations, p)

	log.Debug().
		Str("session_id", e.sessionID).
		Str("phase", string(p)).
		Int("cancelled", len(anims)).
		Msg("phase animations cleared")
}

// StopAllAnimations is the global cancellation primitive: it cancels every
// animation bucket and the in-flight phase timer. Safe to call with
// nothing active.
func (e *Engine) StopAllAnimations() {
	e.mu.Lock()
	e.stopAllAnimationsLocked()
	e.mu.Unlock()
}

func (e *Engine) stopAllAnimationsLocked() {
	for p := range e.animations {
		e.clearPhaseAnimationsLocked(p)
	}
	if e.active != nil {
		e.supersedeActiveLocked()
	}
}

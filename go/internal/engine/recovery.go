package engine

import (
	"context"
	"sync"
	"time"

	"github.com/mcdev12/cascade/go/internal/ack"
	"github.com/mcdev12/cascade/go/internal/phase"
	"github.com/rs/zerolog/log"
)

// RecoveryType selects one of the bounded recovery procedures.
type RecoveryType string

const (
	RecoveryStateResync      RecoveryType = "state_resync"
	RecoveryStepReplay       RecoveryType = "step_replay"
	RecoveryTimingAdjustment RecoveryType = "timing_adjustment"
	RecoveryFullResync       RecoveryType = "full_resync"
)

// Fixed surface timings for the resync procedures.
const (
	resyncFadeOut  = 200 * time.Millisecond
	resyncFadeIn   = 300 * time.Millisecond
	indicatorPulse = 500 * time.Millisecond
)

// ReplayStep is one saved phase to re-run during a step_replay recovery.
type ReplayStep struct {
	StepIndex int
	Phase     phase.Name
	Payload   phase.Payload
}

// RecoveryData carries everything a recovery procedure may need; which
// fields matter depends on Type.
type RecoveryData struct {
	Type              RecoveryType
	Reason            string
	Snapshot          *phase.GridSnapshot
	Steps             []ReplayStep
	TimingAdjustments map[phase.Name]float64
}

// ExecuteRecovery runs one recovery procedure. Every procedure, including
// the unknown-type fallback, terminates with recovery mode cleared and
// onDone invoked exactly once; a recovery that never completed would stall
// the whole presentation pipeline.
func (e *Engine) ExecuteRecovery(ctx context.Context, rec RecoveryData, onDone func()) {
	done := onceFunc(onDone)

	e.mu.Lock()
	e.recoveryMode = true
	e.recoveryAttempts++
	indicator, _ := e.cfg.Duration(phase.SyncIndicator, e.quickMode)
	e.stopAllAnimationsLocked()
	e.mu.Unlock()

	log.Info().
		Str("session_id", e.sessionID).
		Str("recovery_type", string(rec.Type)).
		Str("reason", rec.Reason).
		Msg("recovery started")

	e.renderer.ShowSyncIndicator(indicator)

	switch rec.Type {
	case RecoveryStateResync:
		go e.runStateResync(ctx, rec, done)

	case RecoveryStepReplay:
		go e.runStepReplay(ctx, rec.Steps, done)

	case RecoveryTimingAdjustment:
		e.applyTimingAdjustments(rec.TimingAdjustments)
		e.renderer.ShowSyncIndicator(indicatorPulse)
		go func() {
			e.await(ctx, indicatorPulse)
			e.finishRecovery(rec.Type, done)
		}()

	case RecoveryFullResync:
		e.renderer.ResetSurface()
		if rec.Snapshot != nil {
			e.renderer.ApplySnapshot(*rec.Snapshot)
		}
		e.ResetAnimationState()
		e.renderer.RestoreSurface()
		e.finishRecovery(rec.Type, done)

	default:
		log.Warn().
			Str("session_id", e.sessionID).
			Str("recovery_type", string(rec.Type)).
			Msg("unknown recovery type - completing immediately")
		e.finishRecovery(rec.Type, done)
	}
}

// runStateResync fades the surface out, applies the authoritative snapshot
// with no per-element animation, and fades back in.
func (e *Engine) runStateResync(ctx context.Context, rec RecoveryData, done func()) {
	e.renderer.FadeOut(resyncFadeOut)
	if e.await(ctx, resyncFadeOut) {
		if rec.Snapshot != nil {
			e.renderer.ApplySnapshot(*rec.Snapshot)
		}
		e.renderer.FadeIn(resyncFadeIn)
		e.await(ctx, resyncFadeIn)
	}
	e.finishRecovery(RecoveryStateResync, done)
}

// runStepReplay re-runs saved steps through the normal phase path, forced
// into quick mode, strictly one at a time: each replayed phase reaches
// Done before the next starts.
func (e *Engine) runStepReplay(ctx context.Context, steps []ReplayStep, done func()) {
	for _, st := range steps {
		finished := make(chan struct{})
		e.startPhase(ctx, st.Phase, st.Payload, true, func() { close(finished) })
		select {
		case <-finished:
		case <-ctx.Done():
			e.finishRecovery(RecoveryStepReplay, done)
			return
		}

		log.Debug().
			Str("session_id", e.sessionID).
			Int("step_index", st.StepIndex).
			Str("phase", string(st.Phase)).
			Msg("replayed step completed")
	}
	e.finishRecovery(RecoveryStepReplay, done)
}

// applyTimingAdjustments rescales the baseline timing table. The scaled
// values persist for the remainder of the session.
func (e *Engine) applyTimingAdjustments(adjustments map[phase.Name]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, factor := range adjustments {
		if !e.cfg.Scale(name, factor) {
			e.logSyncErrorLocked(name, "timing adjustment for unknown phase")
			continue
		}
		log.Info().
			Str("session_id", e.sessionID).
			Str("phase", string(name)).
			Float64("factor", factor).
			Msg("phase timing rescaled")
	}
}

// ResetAnimationState reinitializes all runtime fields to their session
// defaults without recreating the engine. Used by full_resync.
func (e *Engine) ResetAnimationState() {
	e.mu.Lock()
	e.stopAllAnimationsLocked()
	e.stepIndex = 0
	e.phaseTimings = make(map[phase.Name]time.Duration)
	e.pendingAcks = make(map[string]ack.Ack)
	e.syncErrors = nil
	e.recoveryAttempts = 0
	e.metrics.reset()
	e.mu.Unlock()

	log.Info().Str("session_id", e.sessionID).Msg("animation state reset")
}

func (e *Engine) finishRecovery(t RecoveryType, done func()) {
	e.mu.Lock()
	e.recoveryMode = false
	e.mu.Unlock()

	log.Info().
		Str("session_id", e.sessionID).
		Str("recovery_type", string(t)).
		Msg("recovery finished")
	done()
}

// await blocks for d on the engine clock. Returns false when the context
// was cancelled first; callers then skip remaining visuals and finish.
func (e *Engine) await(ctx context.Context, d time.Duration) bool {
	timer := e.clock.NewTimer(d)
	select {
	case <-timer.Chan():
		return true
	case <-ctx.Done():
		stopAndDrainTimer(timer)
		return false
	}
}

func onceFunc(fn func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() { invoke(fn) })
	}
}

package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/cascade/go/internal/ack"
	"github.com/mcdev12/cascade/go/internal/phase"
	"github.com/rs/zerolog/log"
)

// phaseRun is one phase instance: Idle -> Running -> Completing -> Done.
// The token ties the duration timer to this instance so a timer that
// outlives its phase cannot complete a successor.
type phaseRun struct {
	token     uint64
	name      phase.Name
	startedAt time.Time
	expected  time.Duration
	timer     clockwork.Timer
	cancelCh  chan struct{}
	onDone    func()
	quick     bool
}

// StartPhase begins one phase of the presentation. Any in-flight phase is
// superseded first: its sub-animations are cancelled and its completion
// callback is never invoked. A phase with no configured timing is logged
// and completed immediately so sequential callers never stall.
func (e *Engine) StartPhase(ctx context.Context, p phase.Name, payload phase.Payload, onDone func()) {
	e.mu.Lock()
	quick := e.quickMode
	e.mu.Unlock()
	e.startPhase(ctx, p, payload, quick, onDone)
}

func (e *Engine) startPhase(ctx context.Context, p phase.Name, payload phase.Payload, quick bool, onDone func()) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		log.Warn().Str("phase", string(p)).Msg("phase start after engine close")
		invoke(onDone)
		return
	}

	if e.active != nil {
		e.supersedeActiveLocked()
	}

	d, ok := e.cfg.Duration(p, quick)
	if !ok || d <= 0 {
		e.logSyncErrorLocked(p, "no timing configured for phase")
		e.mu.Unlock()
		invoke(onDone)
		return
	}

	e.phaseToken++
	run := &phaseRun{
		token:     e.phaseToken,
		name:      p,
		startedAt: e.clock.Now(),
		expected:  d,
		cancelCh:  make(chan struct{}),
		onDone:    onDone,
		quick:     quick,
	}
	e.active = run
	e.currentPhase = p

	anim := e.renderer.Render(p, payload, d)
	if anim != nil {
		e.animations[p] = append(e.animations[p], anim)
	}

	run.timer = e.clock.NewTimer(d)
	e.mu.Unlock()

	log.Debug().
		Str("session_id", e.sessionID).
		Str("phase", string(p)).
		Dur("duration", d).
		Bool("quick", quick).
		Msg("phase started")

	go func() {
		select {
		case <-run.timer.Chan():
			e.finishPhase(run.token)
		case <-run.cancelCh:
		case <-ctx.Done():
			stopAndDrainTimer(run.timer)
		}
	}()
}

// supersedeActiveLocked tears down the in-flight phase without completing
// it. Its onDone is deliberately dropped; only the timer path completes a
// phase.
func (e *Engine) supersedeActiveLocked() {
	run := e.active
	if run == nil {
		return
	}
	if run.timer != nil {
		stopAndDrainTimer(run.timer)
	}
	close(run.cancelCh)
	e.clearPhaseAnimationsLocked(run.name)
	e.active = nil
	e.currentPhase = ""

	log.Debug().
		Str("session_id", e.sessionID).
		Str("phase", string(run.name)).
		Msg("phase superseded before completion")
}

// finishPhase moves a running phase through Completing to Done. A stale
// token means the phase was superseded and the timer tick is ignored.
func (e *Engine) finishPhase(token uint64) {
	e.mu.Lock()
	run := e.active
	if run == nil || run.token != token {
		e.mu.Unlock()
		return
	}

	now := e.clock.Now()
	actual := now.Sub(run.startedAt)

	e.active = nil
	e.currentPhase = ""
	e.clearPhaseAnimationsLocked(run.name)
	e.metrics.record(run.name, run.expected, actual)

	var pending *ack.Ack
	dispatcher := e.acks
	if e.enabled && dispatcher != nil {
		a := ack.Ack{
			ID:          uuid.New().String(),
			SessionID:   e.sessionID,
			Phase:       run.name,
			StepIndex:   e.stepIndex,
			CompletedAt: now,
			DurationMs:  actual.Milliseconds(),
		}
		e.pendingAcks[a.ID] = a
		pending = &a
	}
	e.mu.Unlock()

	log.Debug().
		Str("session_id", e.sessionID).
		Str("phase", string(run.name)).
		Dur("expected", run.expected).
		Dur("actual", actual).
		Msg("phase completed")

	if pending != nil {
		e.dispatchAck(dispatcher, *pending)
	}
	invoke(run.onDone)
}

// dispatchAck transmits one acknowledgment fire-and-forget. Failures are
// logged and the ack stays pending; they never reach the caller.
func (e *Engine) dispatchAck(dispatcher ack.Dispatcher, a ack.Ack) {
	if err := dispatcher.Dispatch(context.Background(), a); err != nil {
		log.Error().
			Err(err).
			Str("ack_id", a.ID).
			Str("phase", string(a.Phase)).
			Msg("acknowledgment dispatch failed")
		return
	}
	e.mu.Lock()
	delete(e.pendingAcks, a.ID)
	e.mu.Unlock()
}

func invoke(fn func()) {
	if fn != nil {
		fn()
	}
}

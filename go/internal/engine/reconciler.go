package engine

import (
	"math"
	"time"

	"github.com/mcdev12/cascade/go/internal/phase"
	"github.com/rs/zerolog/log"
)

// driftTolerance is the fraction of drift between the authority's timing
// and the local expectation above which in-flight playback is corrected.
const driftTolerance = 0.1

// SynchronizeTiming reconciles an incoming cascade step against the local
// timing table. Every reported phase duration is recorded for accuracy
// bookkeeping; playback is adjusted only when the drift exceeds tolerance.
// A partial or unknown-keyed timing map is handled without failing.
func (e *Engine) SynchronizeTiming(step phase.CascadeStep, quick bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stepIndex = step.StepIndex

	for name, serverDur := range step.Timing {
		expected, ok := e.cfg.Duration(name, quick)
		if !ok || expected <= 0 {
			e.logSyncErrorLocked(name, "authority reported timing for unknown phase")
			continue
		}

		e.phaseTimings[name] = serverDur

		factor := float64(serverDur) / float64(expected)
		if math.Abs(factor-1) > driftTolerance {
			e.adjustAnimationSpeedLocked(name, factor)
		}
	}

	e.metrics.recompute()
}

// adjustAnimationSpeedLocked rescales in-flight playback for one phase.
// Registered sub-animations get the new rate, and if the phase is the one
// currently running its duration timer is re-aimed at the rescaled
// remaining time. Phases already done are never touched.
func (e *Engine) adjustAnimationSpeedLocked(p phase.Name, factor float64) {
	for _, a := range e.animations[p] {
		a.SetRate(factor)
	}

	run := e.active
	if run == nil || run.name != p {
		return
	}

	target := time.Duration(float64(run.expected) * factor)
	elapsed := e.clock.Now().Sub(run.startedAt)
	remaining := target - elapsed
	if remaining < 0 {
		remaining = 0
	}
	stopAndDrainTimer(run.timer)
	run.timer.Reset(remaining)

	log.Debug().
		Str("session_id", e.sessionID).
		Str("phase", string(p)).
		Float64("factor", factor).
		Dur("remaining", remaining).
		Msg("adjusted in-flight phase timing")
}

// PhaseTiming returns the authority's last reported duration for a phase.
func (e *Engine) PhaseTiming(p phase.Name) (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.phaseTimings[p]
	return d, ok
}

package engine

import (
	"time"

	"github.com/mcdev12/cascade/go/internal/phase"
)

// accuracySampleLimit bounds the rolling window the score is derived from.
const accuracySampleLimit = 64

type accuracySample struct {
	phase    phase.Name
	expected time.Duration
	actual   time.Duration
}

// accuracyTracker keeps a rolling window of actual-vs-expected phase
// durations and derives a 0-100 score from the mean absolute drift:
// 100 - mean(|actual-expected| in ms)/10, floored at 0.
type accuracyTracker struct {
	samples []accuracySample
	score   float64
}

func (t *accuracyTracker) reset() {
	t.samples = nil
	t.score = 100
}

func (t *accuracyTracker) record(p phase.Name, expected, actual time.Duration) {
	t.samples = append(t.samples, accuracySample{phase: p, expected: expected, actual: actual})
	if n := len(t.samples); n > accuracySampleLimit {
		t.samples = t.samples[n-accuracySampleLimit:]
	}
	t.recompute()
}

// recompute leaves the score unchanged when no completed sample exists.
func (t *accuracyTracker) recompute() {
	if len(t.samples) == 0 {
		return
	}
	var totalMs float64
	for _, s := range t.samples {
		diff := s.actual - s.expected
		if diff < 0 {
			diff = -diff
		}
		totalMs += float64(diff.Milliseconds())
	}
	mean := totalMs / float64(len(t.samples))
	score := 100 - mean/10
	if score < 0 {
		score = 0
	}
	t.score = score
}

// SyncAccuracy reports the rolling 0-100 accuracy score.
func (e *Engine) SyncAccuracy() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics.score
}

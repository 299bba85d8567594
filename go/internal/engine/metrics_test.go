package engine

import (
	"testing"
	"time"

	"github.com/mcdev12/cascade/go/internal/phase"
)

func TestAccuracyScoreDerivation(t *testing.T) {
	var tr accuracyTracker
	tr.reset()

	if tr.score != 100 {
		t.Fatalf("initial score = %v, want 100", tr.score)
	}

	tr.record(phase.WinHighlight, 1000*time.Millisecond, 1100*time.Millisecond)
	if tr.score != 90 {
		t.Errorf("score after 100ms drift = %v, want 90", tr.score)
	}

	tr.record(phase.SymbolRemoval, 500*time.Millisecond, 450*time.Millisecond)
	if tr.score != 92.5 {
		t.Errorf("score after mean 75ms drift = %v, want 92.5", tr.score)
	}
}

func TestAccuracyScoreFlooredAtZero(t *testing.T) {
	var tr accuracyTracker
	tr.reset()

	tr.record(phase.SymbolDrop, time.Second, 100*time.Second)
	if tr.score != 0 {
		t.Fatalf("score = %v, want floor of 0", tr.score)
	}
}

func TestAccuracyUnchangedWithoutSamples(t *testing.T) {
	var tr accuracyTracker
	tr.reset()
	tr.score = 42

	tr.recompute()
	if tr.score != 42 {
		t.Fatalf("score = %v, want unchanged 42 with no completed samples", tr.score)
	}
}

func TestAccuracyResetRestoresPerfectScore(t *testing.T) {
	var tr accuracyTracker
	tr.reset()
	tr.record(phase.SymbolSettle, 300*time.Millisecond, 900*time.Millisecond)

	tr.reset()
	if tr.score != 100 || len(tr.samples) != 0 {
		t.Fatalf("reset left score=%v samples=%d", tr.score, len(tr.samples))
	}
}

func TestAccuracyRollingWindowBounded(t *testing.T) {
	var tr accuracyTracker
	tr.reset()

	for i := 0; i < accuracySampleLimit+10; i++ {
		tr.record(phase.WinHighlight, time.Second, time.Second)
	}
	if len(tr.samples) != accuracySampleLimit {
		t.Fatalf("sample window = %d, want %d", len(tr.samples), accuracySampleLimit)
	}
	if tr.score != 100 {
		t.Errorf("score = %v, want 100 for zero drift", tr.score)
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/cascade/go/internal/ack"
	"github.com/mcdev12/cascade/go/internal/phase"
	"github.com/mcdev12/cascade/go/internal/render"
	"github.com/mcdev12/cascade/go/internal/timing"
)

type renderCall struct {
	phase    phase.Name
	duration time.Duration
}

type fakeAnimation struct {
	mu      sync.Mutex
	cancels int
	rates   []float64
}

func (a *fakeAnimation) Cancel() {
	a.mu.Lock()
	a.cancels++
	a.mu.Unlock()
}

func (a *fakeAnimation) SetRate(factor float64) {
	a.mu.Lock()
	a.rates = append(a.rates, factor)
	a.mu.Unlock()
}

func (a *fakeAnimation) cancelCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancels
}

func (a *fakeAnimation) rateCalls() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]float64, len(a.rates))
	copy(out, a.rates)
	return out
}

type fakeRenderer struct {
	mu         sync.Mutex
	renders    []renderCall
	anims      []*fakeAnimation
	snapshots  []phase.GridSnapshot
	fadeOuts   []time.Duration
	fadeIns    []time.Duration
	indicators []time.Duration
	resets     int
	restores   int
}

func (r *fakeRenderer) Render(p phase.Name, payload phase.Payload, d time.Duration) render.Animation {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, renderCall{phase: p, duration: d})
	anim := &fakeAnimation{}
	r.anims = append(r.anims, anim)
	return anim
}

func (r *fakeRenderer) ApplySnapshot(snap phase.GridSnapshot) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, snap)
	r.mu.Unlock()
}

func (r *fakeRenderer) FadeOut(d time.Duration) {
	r.mu.Lock()
	r.fadeOuts = append(r.fadeOuts, d)
	r.mu.Unlock()
}

func (r *fakeRenderer) FadeIn(d time.Duration) {
	r.mu.Lock()
	r.fadeIns = append(r.fadeIns, d)
	r.mu.Unlock()
}

func (r *fakeRenderer) ShowSyncIndicator(d time.Duration) {
	r.mu.Lock()
	r.indicators = append(r.indicators, d)
	r.mu.Unlock()
}

func (r *fakeRenderer) ResetSurface() {
	r.mu.Lock()
	r.resets++
	r.mu.Unlock()
}

func (r *fakeRenderer) RestoreSurface() {
	r.mu.Lock()
	r.restores++
	r.mu.Unlock()
}

func (r *fakeRenderer) renderCalls() []renderCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]renderCall, len(r.renders))
	copy(out, r.renders)
	return out
}

func (r *fakeRenderer) animation(i int) *fakeAnimation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anims[i]
}

type recordingDispatcher struct {
	mu   sync.Mutex
	acks []ack.Ack
	fail bool
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, a ack.Ack) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("transport down")
	}
	d.acks = append(d.acks, a)
	return nil
}

func (d *recordingDispatcher) sent() []ack.Ack {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ack.Ack, len(d.acks))
	copy(out, d.acks)
	return out
}

func newTestEngine(t *testing.T) (*Engine, *fakeRenderer, *recordingDispatcher, *clockwork.FakeClock) {
	t.Helper()
	renderer := &fakeRenderer{}
	dispatcher := &recordingDispatcher{}
	eng, err := NewEngine(timing.Defaults(), renderer, dispatcher)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	fc := clockwork.NewFakeClock()
	eng.clock = fc
	return eng, renderer, dispatcher, fc
}

func waitDone(t *testing.T, done <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestStartPhaseCompletesOnceAndAcks(t *testing.T) {
	eng, renderer, dispatcher, fc := newTestEngine(t)
	defer eng.Close()

	done := make(chan struct{})
	eng.StartPhase(context.Background(), phase.WinHighlight, phase.WinHighlightPayload{
		Clusters: [][]phase.GridPos{{{Row: 0, Col: 0}, {Row: 0, Col: 1}}},
	}, func() { close(done) })

	if got := eng.Status().CurrentPhase; got != string(phase.WinHighlight) {
		t.Fatalf("expected current phase %q, got %q", phase.WinHighlight, got)
	}

	fc.BlockUntil(1)
	fc.Advance(1000 * time.Millisecond)
	waitDone(t, done, "phase completion")

	acks := dispatcher.sent()
	if len(acks) != 1 {
		t.Fatalf("expected exactly 1 acknowledgment, got %d", len(acks))
	}
	if acks[0].Phase != phase.WinHighlight {
		t.Errorf("ack phase = %q, want %q", acks[0].Phase, phase.WinHighlight)
	}
	if acks[0].DurationMs != 1000 {
		t.Errorf("ack duration = %dms, want 1000ms", acks[0].DurationMs)
	}

	calls := renderer.renderCalls()
	if len(calls) != 1 || calls[0].duration != 1000*time.Millisecond {
		t.Fatalf("unexpected render calls: %+v", calls)
	}

	st := eng.Status()
	if st.CurrentPhase != "" {
		t.Errorf("current phase not cleared after completion: %q", st.CurrentPhase)
	}
	if st.PendingAcks != 0 {
		t.Errorf("expected no pending acks after successful dispatch, got %d", st.PendingAcks)
	}
}

func TestStartPhaseSupersedesInFlightPhase(t *testing.T) {
	eng, renderer, dispatcher, fc := newTestEngine(t)
	defer eng.Close()

	aDone := make(chan struct{})
	eng.StartPhase(context.Background(), phase.WinHighlight, phase.WinHighlightPayload{}, func() { close(aDone) })
	fc.BlockUntil(1)

	bDone := make(chan struct{})
	eng.StartPhase(context.Background(), phase.SymbolRemoval, phase.SymbolRemovalPayload{}, func() { close(bDone) })

	if got := renderer.animation(0).cancelCount(); got == 0 {
		t.Fatal("superseded phase animations were not cancelled")
	}

	fc.BlockUntil(1)
	fc.Advance(500 * time.Millisecond)
	waitDone(t, bDone, "second phase completion")

	// The first phase's timer was stopped; its callback must never fire.
	fc.Advance(2 * time.Second)
	select {
	case <-aDone:
		t.Fatal("superseded phase completed")
	case <-time.After(50 * time.Millisecond):
	}

	acks := dispatcher.sent()
	if len(acks) != 1 || acks[0].Phase != phase.SymbolRemoval {
		t.Fatalf("expected one ack for %q, got %+v", phase.SymbolRemoval, acks)
	}
}

func TestStartPhaseWithoutTimingCompletesImmediately(t *testing.T) {
	eng, renderer, dispatcher, _ := newTestEngine(t)
	defer eng.Close()

	called := 0
	eng.StartPhase(context.Background(), phase.Name("sparkle"), nil, func() { called++ })

	if called != 1 {
		t.Fatalf("expected immediate completion, callback ran %d times", called)
	}
	if len(renderer.renderCalls()) != 0 {
		t.Error("unconfigured phase should not render")
	}
	if len(dispatcher.sent()) != 0 {
		t.Error("unconfigured phase should not ack")
	}
	if got := eng.Status().SyncErrorCount; got != 1 {
		t.Errorf("expected 1 sync error, got %d", got)
	}
}

func TestDisabledEngineSkipsAcks(t *testing.T) {
	eng, _, dispatcher, fc := newTestEngine(t)
	defer eng.Close()
	eng.SetEnabled(false)

	done := make(chan struct{})
	eng.StartPhase(context.Background(), phase.SymbolSettle, phase.SymbolSettlePayload{}, func() { close(done) })
	fc.BlockUntil(1)
	fc.Advance(300 * time.Millisecond)
	waitDone(t, done, "phase completion")

	if got := dispatcher.sent(); len(got) != 0 {
		t.Fatalf("disabled engine dispatched %d acks", len(got))
	}
}

func TestFailedAckStaysPending(t *testing.T) {
	eng, _, dispatcher, fc := newTestEngine(t)
	defer eng.Close()
	dispatcher.fail = true

	done := make(chan struct{})
	eng.StartPhase(context.Background(), phase.SymbolDrop, phase.SymbolDropPayload{}, func() { close(done) })
	fc.BlockUntil(1)
	fc.Advance(800 * time.Millisecond)
	waitDone(t, done, "phase completion")

	if got := eng.Status().PendingAcks; got != 1 {
		t.Fatalf("expected 1 pending ack after dispatch failure, got %d", got)
	}
}

func TestClearPhaseAnimationsIdempotent(t *testing.T) {
	eng, renderer, _, fc := newTestEngine(t)
	defer eng.Close()

	eng.StartPhase(context.Background(), phase.WinHighlight, phase.WinHighlightPayload{}, nil)
	fc.BlockUntil(1)

	eng.ClearPhaseAnimations(phase.WinHighlight)
	eng.ClearPhaseAnimations(phase.WinHighlight)

	if got := renderer.animation(0).cancelCount(); got != 1 {
		t.Fatalf("expected exactly 1 cancel, got %d", got)
	}
}

func TestStopAllAnimationsIdempotent(t *testing.T) {
	eng, renderer, _, fc := newTestEngine(t)
	defer eng.Close()

	// Safe with nothing active.
	eng.StopAllAnimations()

	eng.StartPhase(context.Background(), phase.SymbolDrop, phase.SymbolDropPayload{}, nil)
	fc.BlockUntil(1)

	eng.StopAllAnimations()
	eng.StopAllAnimations()

	if got := renderer.animation(0).cancelCount(); got != 1 {
		t.Fatalf("expected exactly 1 cancel, got %d", got)
	}
	if st := eng.Status(); st.CurrentPhase != "" {
		t.Errorf("current phase not cleared: %q", st.CurrentPhase)
	}
}

func TestSyncErrorLogBounded(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	defer eng.Close()

	for i := 0; i < 15; i++ {
		eng.mu.Lock()
		eng.logSyncErrorLocked(phase.WinHighlight, fmt.Sprintf("drift fault %d", i))
		eng.mu.Unlock()
	}

	errs := eng.SyncErrors()
	if len(errs) != syncErrorLimit {
		t.Fatalf("expected %d errors, got %d", syncErrorLimit, len(errs))
	}
	if errs[0].Message != "drift fault 5" {
		t.Errorf("oldest entry = %q, want %q (oldest evicted first)", errs[0].Message, "drift fault 5")
	}
	if errs[len(errs)-1].Message != "drift fault 14" {
		t.Errorf("newest entry = %q, want %q", errs[len(errs)-1].Message, "drift fault 14")
	}
}

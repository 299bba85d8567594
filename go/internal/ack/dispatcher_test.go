package ack

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mcdev12/cascade/go/internal/phase"
)

func TestLogDispatcherAlwaysSucceeds(t *testing.T) {
	d := NewLogDispatcher()
	a := Ack{
		ID:        "ack-1",
		SessionID: "sess-1",
		Phase:     phase.SymbolSettle,
		StepIndex: 2,
	}
	if err := d.Dispatch(context.Background(), a); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
}

func TestAckWireShape(t *testing.T) {
	a := Ack{
		ID:          "ack-1",
		SessionID:   "sess-1",
		Phase:       phase.WinHighlight,
		StepIndex:   3,
		CompletedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		DurationMs:  1000,
	}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// The authority keys off these exact snake_case fields.
	for _, key := range []string{"id", "session_id", "phase", "step_index", "completed_at", "duration_ms"} {
		if _, ok := wire[key]; !ok {
			t.Errorf("wire form missing %q", key)
		}
	}
	if wire["phase"] != "win_highlight" {
		t.Errorf("phase = %v, want win_highlight", wire["phase"])
	}
}

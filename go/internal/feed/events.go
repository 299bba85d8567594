package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/cascade/go/internal/engine"
	"github.com/mcdev12/cascade/go/internal/phase"
)

// Envelope is the base structure for every event the cascade authority
// pushes to a client session.
type Envelope struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType discriminates authority events.
type EventType string

const (
	EventTypeStepAdvanced   EventType = "StepAdvanced"
	EventTypeDesyncDeclared EventType = "DesyncDeclared"
	EventTypeSessionReset   EventType = "SessionReset"
)

// StepPayload is the wire form of one cascade step.
type StepPayload struct {
	StepIndex int              `json:"step_index"`
	QuickMode bool             `json:"quick_mode"`
	TimingMs  map[string]int64 `json:"timing_ms"`

	Clusters [][]phase.GridPos  `json:"clusters,omitempty"`
	Removed  []phase.GridPos    `json:"removed,omitempty"`
	Drops    []phase.ColumnDrop `json:"drops,omitempty"`
	Settled  []phase.GridPos    `json:"settled,omitempty"`
}

// CascadeStep converts the wire payload to the engine's step type. Timing
// keys are carried through as-is; the engine rejects unknown phases
// without failing the step.
func (p StepPayload) CascadeStep() phase.CascadeStep {
	step := phase.CascadeStep{
		StepIndex: p.StepIndex,
		Timing:    make(map[phase.Name]time.Duration, len(p.TimingMs)),
		Payloads:  make(map[phase.Name]phase.Payload, 4),
	}
	for key, ms := range p.TimingMs {
		step.Timing[phase.Name(key)] = time.Duration(ms) * time.Millisecond
	}
	if len(p.Clusters) > 0 {
		step.Payloads[phase.WinHighlight] = phase.WinHighlightPayload{Clusters: p.Clusters}
	}
	if len(p.Removed) > 0 {
		step.Payloads[phase.SymbolRemoval] = phase.SymbolRemovalPayload{Removed: p.Removed}
	}
	if len(p.Drops) > 0 {
		step.Payloads[phase.SymbolDrop] = phase.SymbolDropPayload{Drops: p.Drops}
	}
	if len(p.Settled) > 0 {
		step.Payloads[phase.SymbolSettle] = phase.SymbolSettlePayload{Settled: p.Settled}
	}
	return step
}

// ReplayStepPayload is the wire form of one saved step in a step_replay
// recovery.
type ReplayStepPayload struct {
	StepIndex int    `json:"step_index"`
	Phase     string `json:"phase"`

	Clusters [][]phase.GridPos  `json:"clusters,omitempty"`
	Removed  []phase.GridPos    `json:"removed,omitempty"`
	Drops    []phase.ColumnDrop `json:"drops,omitempty"`
	Settled  []phase.GridPos    `json:"settled,omitempty"`
}

// replayStep builds the typed payload for the named phase. Unknown phase
// names yield ok=false and the step is skipped by the caller.
func (p ReplayStepPayload) replayStep() (engine.ReplayStep, bool) {
	st := engine.ReplayStep{StepIndex: p.StepIndex, Phase: phase.Name(p.Phase)}
	switch st.Phase {
	case phase.WinHighlight:
		st.Payload = phase.WinHighlightPayload{Clusters: p.Clusters}
	case phase.SymbolRemoval:
		st.Payload = phase.SymbolRemovalPayload{Removed: p.Removed}
	case phase.SymbolDrop:
		st.Payload = phase.SymbolDropPayload{Drops: p.Drops}
	case phase.SymbolSettle:
		st.Payload = phase.SymbolSettlePayload{Settled: p.Settled}
	default:
		return engine.ReplayStep{}, false
	}
	return st, true
}

// DesyncPayload is the wire form of a caller-declared desync plus the
// recovery procedure the authority selected.
type DesyncPayload struct {
	Reason            string              `json:"reason"`
	RecoveryType      string              `json:"recovery_type"`
	Snapshot          *phase.GridSnapshot `json:"snapshot,omitempty"`
	Steps             []ReplayStepPayload `json:"steps,omitempty"`
	TimingAdjustments map[string]float64  `json:"timing_adjustments,omitempty"`
}

// RecoveryData converts the wire payload to the engine's recovery input.
// Replay steps naming unknown phases are dropped; everything else is
// passed through so the engine's own fallback handles unrecognized
// recovery types.
func (p DesyncPayload) RecoveryData() engine.RecoveryData {
	rec := engine.RecoveryData{
		Type:     engine.RecoveryType(p.RecoveryType),
		Reason:   p.Reason,
		Snapshot: p.Snapshot,
	}
	for _, wire := range p.Steps {
		if st, ok := wire.replayStep(); ok {
			rec.Steps = append(rec.Steps, st)
		}
	}
	if len(p.TimingAdjustments) > 0 {
		rec.TimingAdjustments = make(map[phase.Name]float64, len(p.TimingAdjustments))
		for key, factor := range p.TimingAdjustments {
			rec.TimingAdjustments[phase.Name(key)] = factor
		}
	}
	return rec
}

// ParseEnvelope decodes one authority message.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

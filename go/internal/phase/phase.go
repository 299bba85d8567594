package phase

import "time"

// Name identifies one stage of the cascade win presentation.
type Name string

const (
	WinHighlight  Name = "win_highlight"
	SymbolRemoval Name = "symbol_removal"
	SymbolDrop    Name = "symbol_drop"
	SymbolSettle  Name = "symbol_settle"
	RecoveryFade  Name = "recovery_fade"
	SyncIndicator Name = "sync_indicator"
)

// Names returns the recognized phase keys in presentation order.
func Names() []Name {
	return []Name{
		WinHighlight,
		SymbolRemoval,
		SymbolDrop,
		SymbolSettle,
		RecoveryFade,
		SyncIndicator,
	}
}

// Known reports whether n is one of the recognized phase keys.
func Known(n Name) bool {
	switch n {
	case WinHighlight, SymbolRemoval, SymbolDrop, SymbolSettle, RecoveryFade, SyncIndicator:
		return true
	}
	return false
}

// GridPos addresses a single cell in the presentation grid.
type GridPos struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ColumnDrop describes one symbol falling into place within a column.
type ColumnDrop struct {
	Col     int    `json:"col"`
	FromRow int    `json:"from_row"`
	ToRow   int    `json:"to_row"`
	Symbol  string `json:"symbol"`
}

// GridSnapshot is an authoritative picture of the full presentation grid,
// applied verbatim during recovery.
type GridSnapshot struct {
	StepIndex int        `json:"step_index"`
	Rows      [][]string `json:"rows"`
}

// Payload is the closed set of per-phase render payloads. Each concrete
// payload knows which phase it belongs to, so phase and payload can never
// disagree at a call site.
type Payload interface {
	PhaseName() Name
}

// WinHighlightPayload carries the cell clusters to highlight as winners.
type WinHighlightPayload struct {
	Clusters [][]GridPos `json:"clusters"`
}

func (WinHighlightPayload) PhaseName() Name { return WinHighlight }

// SymbolRemovalPayload carries the cells whose symbols are removed.
type SymbolRemovalPayload struct {
	Removed []GridPos `json:"removed"`
}

func (SymbolRemovalPayload) PhaseName() Name { return SymbolRemoval }

// SymbolDropPayload carries the per-column drop targets for falling symbols.
type SymbolDropPayload struct {
	Drops []ColumnDrop `json:"drops"`
}

func (SymbolDropPayload) PhaseName() Name { return SymbolDrop }

// SymbolSettlePayload carries the final resting positions after a drop.
type SymbolSettlePayload struct {
	Settled []GridPos `json:"settled"`
}

func (SymbolSettlePayload) PhaseName() Name { return SymbolSettle }

// RecoveryPayload is rendered while a recovery procedure owns the surface.
type RecoveryPayload struct {
	Reason string `json:"reason"`
}

func (RecoveryPayload) PhaseName() Name { return RecoveryFade }

// CascadeStep is one authoritative iteration of match resolution pushed by
// the cascade authority: expected per-phase timings plus the render payload
// for each phase it covers.
type CascadeStep struct {
	StepIndex int
	Timing    map[Name]time.Duration
	Payloads  map[Name]Payload
}

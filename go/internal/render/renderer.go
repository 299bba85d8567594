package render

import (
	"time"

	"github.com/mcdev12/cascade/go/internal/phase"
)

// Animation is a handle to one in-flight sub-animation started by a
// Renderer. The engine cancels handles when a phase is superseded or
// cleared, and rescales them when the authority's timing drifts.
type Animation interface {
	// Cancel stops the animation immediately. Must be safe to call more
	// than once.
	Cancel()
	// SetRate rescales playback so the animation finishes in
	// factor x its original duration.
	SetRate(factor float64)
}

// Renderer draws the visual side of the presentation. The engine owns
// sequencing and timing only; everything visible happens behind this
// interface.
type Renderer interface {
	// Render begins the visuals for one phase and returns a handle to the
	// resulting animation.
	Render(p phase.Name, payload phase.Payload, d time.Duration) Animation

	// ApplySnapshot replaces the presented grid with an authoritative
	// snapshot, with no per-element animation.
	ApplySnapshot(snap phase.GridSnapshot)

	// FadeOut and FadeIn dim and restore the whole presentation surface.
	FadeOut(d time.Duration)
	FadeIn(d time.Duration)

	// ShowSyncIndicator pulses the resync indicator.
	ShowSyncIndicator(d time.Duration)

	// ResetSurface applies the dramatic full-surface reset transform used
	// by a full resync; RestoreSurface returns the surface to identity.
	ResetSurface()
	RestoreSurface()
}

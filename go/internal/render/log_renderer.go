package render

import (
	"time"

	"github.com/mcdev12/cascade/go/internal/phase"
	"github.com/rs/zerolog/log"
)

// LogRenderer is a renderer that only logs what it is asked to draw. It
// backs the headless client binary and is handy when wiring a real
// presentation layer incrementally.
type LogRenderer struct{}

func NewLogRenderer() *LogRenderer {
	return &LogRenderer{}
}

func (r *LogRenderer) Render(p phase.Name, payload phase.Payload, d time.Duration) Animation {
	log.Debug().
		Str("phase", string(p)).
		Dur("duration", d).
		Msg("render phase")
	return &logAnimation{phase: p}
}

func (r *LogRenderer) ApplySnapshot(snap phase.GridSnapshot) {
	log.Debug().
		Int("step_index", snap.StepIndex).
		Int("rows", len(snap.Rows)).
		Msg("apply grid snapshot")
}

func (r *LogRenderer) FadeOut(d time.Duration) {
	log.Debug().Dur("duration", d).Msg("fade surface out")
}

func (r *LogRenderer) FadeIn(d time.Duration) {
	log.Debug().Dur("duration", d).Msg("fade surface in")
}

func (r *LogRenderer) ShowSyncIndicator(d time.Duration) {
	log.Debug().Dur("duration", d).Msg("show sync indicator")
}

func (r *LogRenderer) ResetSurface() {
	log.Debug().Msg("reset surface transform")
}

func (r *LogRenderer) RestoreSurface() {
	log.Debug().Msg("restore surface transform")
}

type logAnimation struct {
	phase phase.Name
}

func (a *logAnimation) Cancel() {
	log.Debug().Str("phase", string(a.phase)).Msg("cancel animation")
}

func (a *logAnimation) SetRate(factor float64) {
	log.Debug().Str("phase", string(a.phase)).Float64("factor", factor).Msg("rescale animation")
}

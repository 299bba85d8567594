package timing

import (
	"time"

	"github.com/mcdev12/cascade/go/internal/phase"
	"github.com/rs/zerolog/log"
)

// Window holds the baseline durations for one phase in both playback modes.
type Window struct {
	Normal time.Duration
	Quick  time.Duration
}

// Config is the per-phase baseline duration table for a session. It is
// mutated only through Scale, which the timing_adjustment recovery path
// uses; scaled values persist for the remainder of the session.
type Config struct {
	windows map[phase.Name]Window
}

// Defaults returns the baseline timing table.
func Defaults() *Config {
	return &Config{
		windows: map[phase.Name]Window{
			phase.WinHighlight:  {Normal: 1000 * time.Millisecond, Quick: 500 * time.Millisecond},
			phase.SymbolRemoval: {Normal: 500 * time.Millisecond, Quick: 250 * time.Millisecond},
			phase.SymbolDrop:    {Normal: 800 * time.Millisecond, Quick: 400 * time.Millisecond},
			phase.SymbolSettle:  {Normal: 300 * time.Millisecond, Quick: 150 * time.Millisecond},
			phase.RecoveryFade:  {Normal: 500 * time.Millisecond, Quick: 250 * time.Millisecond},
			phase.SyncIndicator: {Normal: 500 * time.Millisecond, Quick: 250 * time.Millisecond},
		},
	}
}

// Duration returns the configured duration for a phase in the given mode.
// The second return is false when the phase has no timing entry.
func (c *Config) Duration(p phase.Name, quick bool) (time.Duration, bool) {
	w, ok := c.windows[p]
	if !ok {
		return 0, false
	}
	if quick {
		return w.Quick, true
	}
	return w.Normal, true
}

// Window returns the raw window for a phase.
func (c *Config) Window(p phase.Name) (Window, bool) {
	w, ok := c.windows[p]
	return w, ok
}

// Scale multiplies both the normal and quick durations for a phase by
// factor. Returns false for an unknown phase or a non-positive factor.
func (c *Config) Scale(p phase.Name, factor float64) bool {
	w, ok := c.windows[p]
	if !ok || factor <= 0 {
		return false
	}
	w.Normal = time.Duration(float64(w.Normal) * factor)
	w.Quick = time.Duration(float64(w.Quick) * factor)
	c.windows[p] = w
	return true
}

// WindowMs is the YAML shape of a timing override.
type WindowMs struct {
	NormalMs int64 `yaml:"normal_ms"`
	QuickMs  int64 `yaml:"quick_ms"`
}

// ApplyOverrides overlays configured overrides onto the table. Unknown
// phase keys are logged and skipped so a stale config file cannot stall
// session startup.
func (c *Config) ApplyOverrides(overrides map[string]WindowMs) {
	for key, ms := range overrides {
		name := phase.Name(key)
		if !phase.Known(name) {
			log.Warn().Str("phase", key).Msg("ignoring timing override for unknown phase")
			continue
		}
		w := c.windows[name]
		if ms.NormalMs > 0 {
			w.Normal = time.Duration(ms.NormalMs) * time.Millisecond
		}
		if ms.QuickMs > 0 {
			w.Quick = time.Duration(ms.QuickMs) * time.Millisecond
		}
		c.windows[name] = w
	}
}

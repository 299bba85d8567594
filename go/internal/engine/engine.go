package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/cascade/go/internal/ack"
	"github.com/mcdev12/cascade/go/internal/phase"
	"github.com/mcdev12/cascade/go/internal/render"
	"github.com/mcdev12/cascade/go/internal/timing"
)

// Engine sequences the multi-phase cascade presentation for one session:
// it runs phases against a token-guarded lifecycle, reconciles local
// timing expectations against the authority's, dispatches completion
// acknowledgments, and executes bounded recovery procedures on a declared
// desync.
//
// All session state lives behind a single mutex; the phase token is the
// only mechanism that can pre-empt an in-flight phase.
type Engine struct {
	mu sync.Mutex

	clock    clockwork.Clock
	renderer render.Renderer
	acks     ack.Dispatcher // nil when no channel is configured
	cfg      *timing.Config

	sessionID string

	enabled   bool
	quickMode bool
	closed    bool

	currentPhase phase.Name // "" when idle
	stepIndex    int

	// phaseToken increases monotonically; a duration timer carrying a
	// stale token belongs to a superseded phase and must be a no-op.
	phaseToken uint64
	active     *phaseRun

	// phaseTimings holds the authority's last reported duration per
	// phase, kept for accuracy bookkeeping regardless of drift size.
	phaseTimings map[phase.Name]time.Duration

	pendingAcks map[string]ack.Ack

	recoveryMode     bool
	recoveryAttempts int

	syncErrors []SyncError
	animations map[phase.Name][]render.Animation
	metrics    accuracyTracker
}

// NewEngine creates the synchronization engine for one presentation
// session. The renderer is required; dispatcher may be nil when no
// acknowledgment channel is configured.
func NewEngine(cfg *timing.Config, renderer render.Renderer, dispatcher ack.Dispatcher) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine: timing config is required")
	}
	if renderer == nil {
		return nil, errors.New("engine: renderer is required")
	}
	e := &Engine{
		clock:        clockwork.NewRealClock(),
		renderer:     renderer,
		acks:         dispatcher,
		cfg:          cfg,
		sessionID:    uuid.New().String()[:8],
		enabled:      true,
		phaseTimings: make(map[phase.Name]time.Duration),
		pendingAcks:  make(map[string]ack.Ack),
		animations:   make(map[phase.Name][]render.Animation),
	}
	e.metrics.reset()
	return e, nil
}

// SessionID returns the short session identifier used in logs and acks.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// SetDispatcher configures the acknowledgment channel after construction,
// for transports that only exist once the feed connection is up.
func (e *Engine) SetDispatcher(d ack.Dispatcher) {
	e.mu.Lock()
	e.acks = d
	e.mu.Unlock()
}

// SetEnabled toggles synchronization. While disabled, phases still run
// but no acknowledgments are dispatched.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
}

// SetQuickMode switches between normal and quick baseline durations for
// subsequently started phases.
func (e *Engine) SetQuickMode(quick bool) {
	e.mu.Lock()
	e.quickMode = quick
	e.mu.Unlock()
}

// Status is a point-in-time snapshot of the session for the pull-based
// status reporter.
type Status struct {
	SessionID        string  `json:"session_id"`
	Enabled          bool    `json:"enabled"`
	QuickMode        bool    `json:"quick_mode"`
	CurrentPhase     string  `json:"current_phase,omitempty"`
	StepIndex        int     `json:"step_index"`
	RecoveryMode     bool    `json:"recovery_mode"`
	RecoveryAttempts int     `json:"recovery_attempts"`
	SyncErrorCount   int     `json:"sync_error_count"`
	PendingAcks      int     `json:"pending_acks"`
	SyncAccuracy     float64 `json:"sync_accuracy"`
}

// Status reports the current session state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		SessionID:        e.sessionID,
		Enabled:          e.enabled,
		QuickMode:        e.quickMode,
		CurrentPhase:     string(e.currentPhase),
		StepIndex:        e.stepIndex,
		RecoveryMode:     e.recoveryMode,
		RecoveryAttempts: e.recoveryAttempts,
		SyncErrorCount:   len(e.syncErrors),
		PendingAcks:      len(e.pendingAcks),
		SyncAccuracy:     e.metrics.score,
	}
}

// Close tears the session down: cancels the in-flight phase and every
// registered animation. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.stopAllAnimationsLocked()
	e.mu.Unlock()
}

// stopAndDrainTimer safely stops a timer and drains its channel so a
// fired-but-unread tick cannot leak into a later wait.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

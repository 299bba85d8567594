package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/cascade/go/internal/engine"
	"github.com/rs/zerolog/log"
)

// Router feeds decoded authority events into the synchronization engine.
// Both transports (JetStream, WebSocket) share it.
type Router struct {
	engine *engine.Engine
}

func NewRouter(eng *engine.Engine) *Router {
	return &Router{engine: eng}
}

// HandleEnvelope routes one authority event. Unknown event types are
// logged and ignored so a newer authority cannot wedge an older client.
func (r *Router) HandleEnvelope(ctx context.Context, env *Envelope) error {
	log.Debug().
		Str("event_id", env.ID).
		Str("session_id", env.SessionID).
		Str("event_type", string(env.Type)).
		Msg("handling authority event")

	switch env.Type {
	case EventTypeStepAdvanced:
		var payload StepPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return fmt.Errorf("unmarshal StepAdvanced payload: %w", err)
		}
		r.engine.SynchronizeTiming(payload.CascadeStep(), payload.QuickMode)
		return nil

	case EventTypeDesyncDeclared:
		var payload DesyncPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return fmt.Errorf("unmarshal DesyncDeclared payload: %w", err)
		}
		r.engine.ExecuteRecovery(ctx, payload.RecoveryData(), func() {
			log.Info().
				Str("session_id", env.SessionID).
				Str("recovery_type", payload.RecoveryType).
				Msg("recovery completed")
		})
		return nil

	case EventTypeSessionReset:
		r.engine.ResetAnimationState()
		return nil

	default:
		log.Warn().
			Str("event_type", string(env.Type)).
			Msg("unknown event type - ignoring")
		return nil
	}
}

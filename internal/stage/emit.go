package stage

import (
	"context"

	"darkroom/internal/bus"
	"darkroom/internal/event"
	"darkroom/internal/lineage"
)

// Emit publishes the envelope to the exchange under its event type and then
// records it in the lineage graph with a causal edge back to causedBy.
// Publishing happens first: the exchange drives the saga forward while the
// graph stays an audit view.
func Emit(ctx context.Context, pub bus.Publisher, store lineage.Store, env event.Envelope, causedBy string) error {
	body, err := event.Marshal(env)
	if err != nil {
		return err
	}
	if err := pub.Publish(ctx, env.EventType, body); err != nil {
		return err
	}
	_, err = store.RecordEvent(ctx, env, causedBy)
	return err
}

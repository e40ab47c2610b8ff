package stage

import (
	"context"

	"darkroom/internal/event"
)

// Decision is the explicit acknowledgement outcome for one delivery. The
// default policy always acks, even on failure; Requeue exists so a dead-letter
// or retry policy can be plugged in without touching handler logic.
type Decision int

const (
	Ack Decision = iota
	Requeue
)

func (d Decision) String() string {
	if d == Requeue {
		return "requeue"
	}
	return "ack"
}

// Handler is one saga stage: it reacts to exactly one event type, performs
// one externally visible side effect, publishes the next event (when not
// terminal), and records lineage. The returned envelope is the event the
// stage emitted, or nil for a silent terminal outcome.
type Handler interface {
	// EventType is the routing key the stage binds and the causal
	// predecessor recorded for everything it emits.
	EventType() string
	// QueueName is the durable queue the stage consumes from.
	QueueName() string
	Handle(ctx context.Context, env event.Envelope) (*event.Envelope, error)
}

// AckPolicy maps a handler outcome to an acknowledgement decision.
type AckPolicy func(error) Decision

// AlwaysAck acknowledges every delivery regardless of outcome. A mid-chain
// failure halts that workflow's progress with no redelivery; callers infer
// the stall from the lineage graph.
func AlwaysAck(error) Decision { return Ack }

package stage

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"darkroom/internal/event"
	"darkroom/internal/logging"
	"darkroom/internal/services"
)

// Runner drives one Handler over a delivery stream, applying the uniform
// decode → handle → acknowledge shape around it.
type Runner struct {
	handler Handler
	policy  AckPolicy
	logger  *slog.Logger
}

// NewRunner builds a runner with the default always-acknowledge policy.
func NewRunner(handler Handler, logger *slog.Logger) *Runner {
	return NewRunnerWithPolicy(handler, logger, AlwaysAck)
}

// NewRunnerWithPolicy allows substituting the acknowledgement policy.
func NewRunnerWithPolicy(handler Handler, logger *slog.Logger, policy AckPolicy) *Runner {
	if policy == nil {
		policy = AlwaysAck
	}
	return &Runner{
		handler: handler,
		policy:  policy,
		logger:  logging.NewComponentLogger(logger, handler.QueueName()),
	}
}

// Run consumes deliveries until the stream closes or the context is done.
// Each delivery is handled independently; there is no shared mutable state
// between them.
func (r *Runner) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	r.logger.Info("stage consuming",
		logging.String(logging.FieldEventType, r.handler.EventType()),
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			r.settle(delivery, r.HandleDelivery(ctx, delivery.Body))
		}
	}
}

// HandleDelivery processes one message body and returns the acknowledgement
// decision the policy chose. Exposed so tests can assert on the decision
// without a broker.
func (r *Runner) HandleDelivery(ctx context.Context, body []byte) Decision {
	env, err := event.Parse(body)
	if err != nil {
		// Undecodable messages can never succeed; redelivering them would
		// loop forever, so they are always consumed.
		r.logger.Error("discarding malformed message", logging.Error(err))
		return Ack
	}

	ctx = services.WithWorkflowID(ctx, env.WorkflowID)
	ctx = services.WithEventID(ctx, env.EventID)
	ctx = services.WithStage(ctx, env.EventType)
	logger := logging.WithContext(ctx, r.logger)

	out, err := r.handler.Handle(ctx, env)
	if err != nil {
		decision := r.policy(err)
		logger.Error("stage failed", logging.Error(err), logging.String("decision", decision.String()))
		return decision
	}

	if out != nil {
		logger.Info("stage completed",
			logging.String("next_event_type", out.EventType),
			logging.String("next_event_id", out.EventID),
		)
	} else {
		logger.Info("stage completed with terminal result")
	}
	return Ack
}

func (r *Runner) settle(delivery amqp.Delivery, decision Decision) {
	var err error
	switch decision {
	case Requeue:
		err = delivery.Nack(false, true)
	default:
		err = delivery.Ack(false)
	}
	if err != nil {
		r.logger.Error("settle delivery", logging.Error(err))
	}
}

package notifier

import (
	"context"
	"log/slog"

	"darkroom/internal/event"
	"darkroom/internal/lineage"
	"darkroom/internal/logging"
	"darkroom/internal/services"
)

// QueueName is the durable queue the notification stage consumes from.
const QueueName = "notification-service"

const subjectPrefix = "Image Analysis Complete - "

// Stage reacts to image.stored by mailing the workflow's notification
// address a link to the stored image. It is the terminal stage: the
// notification.sent event is recorded in the lineage graph but never
// published, because nothing consumes it.
type Stage struct {
	mailer Mailer
	store  lineage.Store
	logger *slog.Logger
}

// NewStage wires the notification stage.
func NewStage(mailer Mailer, store lineage.Store, logger *slog.Logger) *Stage {
	return &Stage{
		mailer: mailer,
		store:  store,
		logger: logging.NewComponentLogger(logger, "notifier"),
	}
}

func (s *Stage) EventType() string { return event.TypeImageStored }

func (s *Stage) QueueName() string { return QueueName }

// Handle resolves the workflow's notification address from the lineage
// graph. Workflows started without an address finish silently; that is a
// normal terminal outcome, not a failure.
func (s *Stage) Handle(ctx context.Context, env event.Envelope) (*event.Envelope, error) {
	link, ok := env.PayloadString("presignedUrl")
	if !ok {
		return nil, services.Wrap(services.ErrMalformed, "notifier", "handle",
			"payload missing presignedUrl", nil)
	}

	email, found, err := s.store.WorkflowEmail(ctx, env.WorkflowID)
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.Info("workflow has no notification address",
			logging.String(logging.FieldWorkflowID, env.WorkflowID),
		)
		return nil, nil
	}

	htmlBody, err := renderBody(env.WorkflowID, link, env.Timestamp)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.Send(ctx, email, subjectPrefix+env.WorkflowID, htmlBody); err != nil {
		return nil, err
	}
	s.logger.Info("notification sent",
		logging.String(logging.FieldWorkflowID, env.WorkflowID),
		logging.String("email", email),
	)

	out := event.New(event.TypeNotificationSent, env.WorkflowID, event.Payload{"email": email})
	if _, err := s.store.RecordEvent(ctx, out, env.EventType); err != nil {
		return nil, err
	}
	return &out, nil
}

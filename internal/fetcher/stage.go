package fetcher

import (
	"context"
	"log/slog"

	"darkroom/internal/bus"
	"darkroom/internal/event"
	"darkroom/internal/lineage"
	"darkroom/internal/logging"
	"darkroom/internal/services"
	"darkroom/internal/stage"
)

// QueueName is the durable queue the fetch stage consumes from.
const QueueName = "image-fetcher"

// Stage reacts to workflow.started by acquiring the source image and
// emitting image.fetched.
type Stage struct {
	acquirer *Acquirer
	pub      bus.Publisher
	store    lineage.Store
	logger   *slog.Logger
}

// NewStage wires the fetch stage with its publisher and lineage store.
func NewStage(acquirer *Acquirer, pub bus.Publisher, store lineage.Store, logger *slog.Logger) *Stage {
	return &Stage{
		acquirer: acquirer,
		pub:      pub,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "fetcher"),
	}
}

func (s *Stage) EventType() string { return event.TypeWorkflowStarted }

func (s *Stage) QueueName() string { return QueueName }

// Handle downloads and normalizes the image named in the payload, then
// publishes image.fetched with the staged file's attributes.
func (s *Stage) Handle(ctx context.Context, env event.Envelope) (*event.Envelope, error) {
	imageURL, ok := env.PayloadString("imageUrl")
	if !ok {
		return nil, services.Wrap(services.ErrMalformed, "fetcher", "handle",
			"payload missing imageUrl", nil)
	}

	res, err := s.acquirer.Acquire(ctx, env.WorkflowID, imageURL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("image staged",
		logging.String(logging.FieldWorkflowID, env.WorkflowID),
		logging.String("filename", res.Filename),
		logging.Int("width", res.Width),
		logging.Int("height", res.Height),
	)

	out := event.New(event.TypeImageFetched, env.WorkflowID, event.Payload{
		"imageUrl": imageURL,
		"filename": res.Filename,
		"width":    res.Width,
		"height":   res.Height,
		"mimeType": res.MimeType,
	})
	if err := stage.Emit(ctx, s.pub, s.store, out, env.EventType); err != nil {
		return nil, err
	}
	return &out, nil
}

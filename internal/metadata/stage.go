package metadata

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

// QueueName is the durable queue the metadata stage consumes from.
const QueueName = "metadata-extractor"

// Stage reacts to image.fetched by extracting technical metadata from the
// staged file and emitting image.metadata_extracted. It runs alongside the
// annotation path; nothing downstream consumes its event inside this system.
type Stage struct {
	extractor *Extractor
	pub       bus.Publisher
	store     lineage.Store
	logger    *slog.Logger
}

// NewStage wires the metadata stage with its publisher and lineage store.
func NewStage(extractor *Extractor, pub bus.Publisher, store lineage.Store, logger *slog.Logger) *Stage {
	return &Stage{
		extractor: extractor,
		pub:       pub,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "metadata"),
	}
}

func (s *Stage) EventType() string { return event.TypeImageFetched }

func (s *Stage) QueueName() string { return QueueName }

func (s *Stage) Handle(ctx context.Context, env event.Envelope) (*event.Envelope, error) {
	filename, ok := env.PayloadString("filename")
	if !ok {
		return nil, services.Wrap(services.ErrMalformed, "metadata", "handle",
			"payload missing filename", nil)
	}

	meta, err := s.extractor.Extract(filename)
	if err != nil {
		return nil, err
	}
	s.logger.Info("metadata extracted",
		logging.String(logging.FieldWorkflowID, env.WorkflowID),
		logging.String("filename", filename),
		logging.Int("exif_tags", len(meta.EXIF)),
	)

	out := event.New(event.TypeMetadataExtracted, env.WorkflowID, event.Payload{
		"filename": filename,
		"metadata": meta,
	})
	if err := stage.Emit(ctx, s.pub, s.store, out, env.EventType); err != nil {
		return nil, err
	}
	return &out, nil
}

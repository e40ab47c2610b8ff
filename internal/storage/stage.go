package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"darkroom/internal/bus"
	"darkroom/internal/event"
	"darkroom/internal/lineage"
	"darkroom/internal/logging"
	"darkroom/internal/services"
	"darkroom/internal/stage"
)

// QueueName is the durable queue the storage stage consumes from.
const QueueName = "storage-service"

// presignExpiry bounds how long a shared link stays valid.
const presignExpiry = 7 * 24 * time.Hour

// Stage reacts to image.annotated by publishing the staged file to the
// object store and emitting image.stored with a shareable link.
type Stage struct {
	store   ObjectStore
	bucket  string
	dataDir string
	pub     bus.Publisher
	lineage lineage.Store
	logger  *slog.Logger
}

// NewStage wires the storage stage.
func NewStage(store ObjectStore, bucket, dataDir string, pub bus.Publisher, lin lineage.Store, logger *slog.Logger) *Stage {
	return &Stage{
		store:   store,
		bucket:  bucket,
		dataDir: dataDir,
		pub:     pub,
		lineage: lin,
		logger:  logging.NewComponentLogger(logger, "storage"),
	}
}

func (s *Stage) EventType() string { return event.TypeImageAnnotated }

func (s *Stage) QueueName() string { return QueueName }

func (s *Stage) Handle(ctx context.Context, env event.Envelope) (*event.Envelope, error) {
	filename, ok := env.PayloadString("filename")
	if !ok {
		return nil, services.Wrap(services.ErrMalformed, "storage", "handle",
			"payload missing filename", nil)
	}

	objectKey := "annotated/" + filename
	path := filepath.Join(s.dataDir, filename)
	if err := s.store.Upload(ctx, objectKey, path, "image/jpeg"); err != nil {
		return nil, err
	}
	presigned, err := s.store.PresignGet(ctx, objectKey, presignExpiry)
	if err != nil {
		return nil, err
	}
	s.logger.Info("image stored",
		logging.String(logging.FieldWorkflowID, env.WorkflowID),
		logging.String("object_key", objectKey),
	)

	out := event.New(event.TypeImageStored, env.WorkflowID, event.Payload{
		"filename":     filename,
		"bucket":       s.bucket,
		"objectKey":    objectKey,
		"presignedUrl": presigned,
	})
	if err := stage.Emit(ctx, s.pub, s.lineage, out, env.EventType); err != nil {
		return nil, err
	}
	return &out, nil
}

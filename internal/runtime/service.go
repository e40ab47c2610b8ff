package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"darkroom/internal/bus"
	"darkroom/internal/config"
	"darkroom/internal/logging"
	"darkroom/internal/stage"
)

// Service is one darkroom process: it enforces single-instance execution
// through a file lock and owns the signal-driven lifecycle.
type Service struct {
	name     string
	cfg      *config.Config
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock
}

// New constructs a service named name. The lock file lives in the log
// directory so every instance of the same service contends on it.
func New(name string, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("service requires config and logger")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("darkroom-%s.lock", name))
	return &Service{
		name:     name,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, name),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Acquire takes the instance lock, failing when another instance of this
// service already holds it.
func (s *Service) Acquire() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another darkroom %s instance is already running", s.name)
	}
	s.logger.Info("service started", logging.String("lock", s.lockPath))
	return nil
}

// Release gives the instance lock back.
func (s *Service) Release() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release service lock", logging.Error(err))
	}
	s.logger.Info("service stopped")
}

// Logger returns the service-scoped logger.
func (s *Service) Logger() *slog.Logger { return s.logger }

// SignalContext derives a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// RunStage binds the handler's queue on the bus and consumes until the
// context is cancelled or the delivery stream closes.
func (s *Service) RunStage(ctx context.Context, b *bus.Bus, handler stage.Handler) error {
	deliveries, err := b.Consume(handler.QueueName(), handler.EventType())
	if err != nil {
		return err
	}
	runner := stage.NewRunner(handler, s.logger)
	if err := runner.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

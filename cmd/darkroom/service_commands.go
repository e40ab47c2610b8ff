package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"darkroom/internal/api"
	"darkroom/internal/bus"
	"darkroom/internal/config"
	"darkroom/internal/fetcher"
	"darkroom/internal/imagecheck"
	"darkroom/internal/lineage"
	"darkroom/internal/metadata"
	"darkroom/internal/notifier"
	"darkroom/internal/runtime"
	"darkroom/internal/storage"
)

type serviceDeps struct {
	cfg    *config.Config
	logger *slog.Logger
	bus    *bus.Bus
	graph  *lineage.Graph
}

// withRuntime owns the shared service scaffold: signal context, instance
// lock, broker connection, and graph connection, torn down in reverse order.
func withRuntime(cctx *commandContext, name string, fn func(ctx context.Context, svc *runtime.Service, deps serviceDeps) error) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return err
	}

	ctx, cancel := runtime.SignalContext(context.Background())
	defer cancel()

	svc, err := runtime.New(name, cfg, logger)
	if err != nil {
		return err
	}
	if err := svc.Acquire(); err != nil {
		return err
	}
	defer svc.Release()

	b, err := bus.Connect(cfg.AMQP, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	graph, err := lineage.Open(ctx, cfg.Neo4j, logger)
	if err != nil {
		return err
	}
	defer graph.Close(context.Background())

	return fn(ctx, svc, serviceDeps{cfg: cfg, logger: logger, bus: b, graph: graph})
}

func newAPICommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Run the workflow intake API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cctx, "api", func(ctx context.Context, svc *runtime.Service, deps serviceDeps) error {
				validator := imagecheck.New(deps.cfg.Validation)
				service := api.NewWorkflowService(validator, deps.graph, deps.bus, deps.logger)
				server := api.NewServer(deps.cfg.Paths.APIBind, service, deps.logger)
				if err := server.Start(ctx); err != nil {
					return err
				}
				<-ctx.Done()
				server.Stop()
				return nil
			})
		},
	}
}

func newStageCommands(cctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "fetch",
			Short: "Run the image fetch stage",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cctx, "fetch", func(ctx context.Context, svc *runtime.Service, deps serviceDeps) error {
					handler := fetcher.NewStage(fetcher.NewAcquirer(deps.cfg), deps.bus, deps.graph, deps.logger)
					return svc.RunStage(ctx, deps.bus, handler)
				})
			},
		},
		{
			Use:   "metadata",
			Short: "Run the metadata extraction stage",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cctx, "metadata", func(ctx context.Context, svc *runtime.Service, deps serviceDeps) error {
					handler := metadata.NewStage(metadata.NewExtractor(deps.cfg.Paths.DataDir), deps.bus, deps.graph, deps.logger)
					return svc.RunStage(ctx, deps.bus, handler)
				})
			},
		},
		{
			Use:   "store",
			Short: "Run the object storage stage",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cctx, "store", func(ctx context.Context, svc *runtime.Service, deps serviceDeps) error {
					objectStore, err := storage.NewMinIOStore(deps.cfg.MinIO)
					if err != nil {
						return err
					}
					if err := objectStore.EnsureBucket(ctx); err != nil {
						return err
					}
					handler := storage.NewStage(objectStore,
						deps.cfg.MinIO.Bucket, deps.cfg.Paths.DataDir, deps.bus, deps.graph, deps.logger)
					return svc.RunStage(ctx, deps.bus, handler)
				})
			},
		},
		{
			Use:   "notify",
			Short: "Run the notification stage",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRuntime(cctx, "notify", func(ctx context.Context, svc *runtime.Service, deps serviceDeps) error {
					mailer, err := notifier.NewSMTPMailer(deps.cfg.SMTP)
					if err != nil {
						return err
					}
					handler := notifier.NewStage(mailer, deps.graph, deps.logger)
					return svc.RunStage(ctx, deps.bus, handler)
				})
			},
		},
	}
}

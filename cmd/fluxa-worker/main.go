package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/fluxa-crm/fluxa/pkg/cmd"
	"github.com/fluxa-crm/fluxa/pkg/engine"
	"github.com/fluxa-crm/fluxa/pkg/log"
	"github.com/fluxa-crm/fluxa/pkg/tracer"
)

func main() {
	command := &cli.Command{
		Name:                  "fluxa-worker",
		EnableShellCompletion: true,
		Usage:                 "Execute workflow run steps from the step queue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "gateway-url",
				Usage:    "Base URL of the CRM gateway API",
				Required: true,
				Sources:  cli.EnvVars("GATEWAY_URL"),
			},
			&cli.StringFlag{
				Name:    "gateway-token",
				Usage:   "Bearer token for the CRM gateway API",
				Sources: cli.EnvVars("GATEWAY_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for shared rate limit state",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "holidays",
				Usage:   "Comma-separated YYYY-MM-DD dates skipped by delay nodes",
				Sources: cli.EnvVars("HOLIDAYS"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for executed steps",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("fluxa-worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing fluxa worker")

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				sig := <-sigChan
				logger.InfoContext(ctx, "Received signal, shutting down", "signal", sig)
				cancel()
			}()

			registry := cmd.NewRegistry(logger, command.String("gateway-url"), command.String("gateway-token"))
			limiter := cmd.NewRateLimiter(logger, command.String("redis-url"))
			calendar := engine.NewStaticCalendar(cmd.ParseHolidays(command.String("holidays")))

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fluxa-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eng := engine.NewEngine(persistence, eventBus, registry, limiter, calendar, logger,
				engine.DefaultConfig(workerID))

			workerTracer := tracer.Noop()
			if command.Bool("tracing") {
				var err error

				workerTracer, err = tracer.NewTracer(ctx, "fluxa-worker")
				if err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)
					workerTracer = tracer.Noop()
				}
			}

			worker := engine.NewWorker(workerID, eng, eventBus, workerTracer, logger)

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Worker stopped with error", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

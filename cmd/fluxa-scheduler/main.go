package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/fluxa-crm/fluxa/pkg/cmd"
	"github.com/fluxa-crm/fluxa/pkg/log"
	"github.com/fluxa-crm/fluxa/pkg/scheduler"
)

func main() {
	command := &cli.Command{
		Name:                  "fluxa-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Fire cron schedules and re-admit parked runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scheduler-id",
				Aliases: []string{"id"},
				Usage:   "Custom scheduler ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("SCHEDULER_ID"),
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
			&cli.DurationFlag{
				Name:    "tick",
				Usage:   "Interval between scheduler passes",
				Value:   time.Second,
				Sources: cli.EnvVars("SCHEDULER_TICK"),
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

			schedulerID := command.String("scheduler-id")
			if schedulerID == "" {
				schedulerID = "scheduler-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("fluxa-scheduler").With("scheduler_id", schedulerID)
			logger.InfoContext(ctx, "Initializing fluxa scheduler")

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				sig := <-sigChan
				logger.InfoContext(ctx, "Received signal, shutting down", "signal", sig)
				cancel()
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fluxa-scheduler", logger)
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

			s := scheduler.NewScheduler(schedulerID, persistence, eventBus, logger, command.Duration("tick"))

			if err := s.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Scheduler stopped with error", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

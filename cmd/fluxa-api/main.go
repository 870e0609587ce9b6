package main

import (
	"context"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"

	"github.com/fluxa-crm/fluxa/pkg/cmd"
	"github.com/fluxa-crm/fluxa/pkg/log"
	"github.com/fluxa-crm/fluxa/pkg/web"
	"github.com/fluxa-crm/fluxa/pkg/workflow"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("fluxa-api")

	command := &cli.Command{
		Name:                  "fluxa-api",
		EnableShellCompletion: true,
		Usage:                 "Create, publish and inspect workflows",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
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
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing fluxa API")

			registry := cmd.NewRegistry(logger, command.String("gateway-url"), command.String("gateway-token"))

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fluxa-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			workflowService := workflow.NewService(persistence, logger)
			publishingService := workflow.NewPublishingService(persistence, workflow.NewValidator(registry))

			handlers := web.NewAPIHandlers(workflowService, publishingService, persistence, eventBus, registry,
				validator.New(validator.WithRequiredStructEnabled()))

			app := web.NewApp(handlers)

			return app.Listen(":" + strconv.Itoa(command.Int("port")))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

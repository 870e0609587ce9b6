package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxa-crm/fluxa/pkg/eventbus"
	"github.com/fluxa-crm/fluxa/pkg/events"
	"github.com/fluxa-crm/fluxa/pkg/tracer"
)

// Worker consumes step dispatch events and drives the engine. Many workers
// may run concurrently; the engine's stale-delivery check keeps duplicate
// deliveries harmless.
type Worker struct {
	id       string
	engine   *Engine
	eventBus eventbus.EventBus
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewWorker(id string, engine *Engine, eventBus eventbus.EventBus, workerTracer trace.Tracer, logger *slog.Logger) *Worker {
	if workerTracer == nil {
		workerTracer = tracer.Noop()
	}

	return &Worker{
		id:       id,
		engine:   engine,
		eventBus: eventBus,
		tracer:   workerTracer,
		logger:   logger.With("module", "worker", "worker_id", id),
	}
}

// Start registers the step handler and blocks consuming events until the
// context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	err := w.eventBus.Handle(events.RunStepAvailableEvent, func(ctx context.Context, event any) error {
		step, ok := event.(*events.RunStepAvailable)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}

		return w.step(ctx, step)
	})
	if err != nil {
		return fmt.Errorf("failed to register step handler: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started")

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to step events: %w", err)
	}

	<-ctx.Done()

	return nil
}

func (w *Worker) step(ctx context.Context, step *events.RunStepAvailable) error {
	ctx, span := tracer.StartSpan(ctx, w.tracer, "run.step",
		attribute.String(tracer.RunIDKey, step.RunID),
		attribute.String(tracer.NodeIDKey, step.NodeID),
		attribute.Int(tracer.AttemptKey, step.Attempt),
		attribute.String(tracer.WorkerIDKey, w.id),
	)
	defer span.End()

	if err := w.engine.Step(ctx, step.RunID, step.NodeID, step.Attempt); err != nil {
		tracer.SetError(span, err)

		return err
	}

	return nil
}

package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"regportal/internal/report/models"
	dErrors "regportal/pkg/domain-errors"
)

// Worker dequeues jobs, runs the engine, and reports outcomes to the sink.
// An engine error or panic maps to OutcomeTechError rather than crashing the
// worker; a single flaky validation must not take the pipeline down.
type Worker struct {
	queue  Dequeuer
	engine Engine
	sink   Sink
	logger *slog.Logger
}

func NewWorker(queue Dequeuer, engine Engine, sink Sink, logger *slog.Logger) *Worker {
	return &Worker{queue: queue, engine: engine, sink: sink, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.logger.Error("dequeue failed", "error", err)
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	outcome, fieldErrs, err := w.runEngine(ctx, job)
	if err != nil {
		w.logger.Error("validation engine failed",
			"error", err,
			"report_id", job.ReportID.String(),
			"attempt_id", job.AttemptID.String(),
		)
		outcome = models.OutcomeTechError
		fieldErrs = nil
	}

	if err := w.sink.RecordValidationOutcome(ctx, job.AttemptID, outcome, fieldErrs); err != nil {
		// InvalidState means the attempt already has a terminal outcome,
		// typically because the sweeper timed it out first. The attempt
		// keeps its recorded outcome; this result is discarded.
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			w.logger.Warn("validation outcome arrived after attempt was finalized",
				"attempt_id", job.AttemptID.String(),
				"outcome", string(outcome),
			)
			return
		}
		w.logger.Error("failed to record validation outcome",
			"error", err,
			"attempt_id", job.AttemptID.String(),
		)
	}
}

// runEngine isolates engine panics so they surface as TECH_ERROR outcomes.
func (w *Worker) runEngine(ctx context.Context, job Job) (outcome models.Outcome, fieldErrs []models.FieldError, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return w.engine.Validate(ctx, job)
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// IdempotencyCleanupPayload configures the retention window for one run.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// IdempotencyStore prunes stored request keys.
type IdempotencyStore interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob prunes idempotency keys past their retention window.
type IdempotencyCleanupJob struct {
	Store     IdempotencyStore
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob constructs the job handler.
func NewIdempotencyCleanupJob(store IdempotencyStore, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if retention <= 0 {
		retention = 168 * time.Hour
	}
	return &IdempotencyCleanupJob{Store: store, Retention: retention, Logger: logger, Metrics: metrics}
}

// NewIdempotencyCleanupTask creates the Asynq task with the default window.
func NewIdempotencyCleanupTask() (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: dependencies not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := j.Retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}

	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	err := j.Store.Cleanup(ctx, retention)
	if err != nil {
		j.log().Error("idempotency cleanup", slog.Any("error", err))
	} else {
		j.log().Info("idempotency cleanup finished", slog.Duration("retention", retention))
	}
	return tracker.End(err)
}

func (j *IdempotencyCleanupJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

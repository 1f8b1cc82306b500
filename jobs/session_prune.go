package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/course-portal/portal/internal/observability"
)

// SessionPruner deletes audit rows older than a cutoff.
type SessionPruner interface {
	PruneExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionPruneJob trims the portal_sessions audit table.
type SessionPruneJob struct {
	Pruner  SessionPruner
	Logger  *slog.Logger
	Metrics *observability.Metrics
	clock   func() time.Time
}

// NewSessionPruneJob wires dependencies for the prune handler.
func NewSessionPruneJob(pruner SessionPruner, logger *slog.Logger, metrics *observability.Metrics) *SessionPruneJob {
	return &SessionPruneJob{
		Pruner:  pruner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskSessionPrune tasks.
func (j *SessionPruneJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Pruner == nil {
		return errors.New("session prune: handler not configured")
	}
	var payload SessionPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetainFor <= 0 {
		payload.RetainFor = DefaultSessionRetention
	}
	defer func() {
		j.Metrics.ObserveJob(TaskSessionPrune, resultErr)
	}()

	start := j.clock()
	cutoff := start.Add(-payload.RetainFor)
	logger := j.logger().With(slog.Time("cutoff", cutoff))

	deleted, err := j.Pruner.PruneExpired(ctx, cutoff)
	if err != nil {
		logger.Error("prune sessions", slog.Any("error", err))
		return err
	}
	logger.Info("pruned sessions", slog.Int64("deleted", deleted), slog.Duration("duration", j.clock().Sub(start)))
	return nil
}

func (j *SessionPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/course-portal/portal/internal/platform/cache"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionPrune removes expired and ended session audit rows.
	TaskSessionPrune = "sessions:prune"
)

// DefaultSessionRetention keeps audit rows for a week past expiry or logout.
const DefaultSessionRetention = 7 * 24 * time.Hour

// SessionPrunePayload describes one prune run.
type SessionPrunePayload struct {
	RetainFor time.Duration `json:"retain_for"`
}

// NewSessionPruneTask constructs an Asynq task.
func NewSessionPruneTask(retainFor time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(SessionPrunePayload{RetainFor: retainFor})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionPrune, data), nil
}

// RedisOpt builds the asynq connection from the same address format the
// portal uses for sessions: host:port or a redis:// URL.
func RedisOpt(addr string) (asynq.RedisClientOpt, error) {
	opts, err := cache.Options(addr)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}, nil
}

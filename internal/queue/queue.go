package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const maxTaskRetries = 3

var ErrNoClient = errors.New("task queue is not configured")

func NewPublishReelTask(reelID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishReelPayload{ReelID: reelID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishReel, payload, asynq.MaxRetry(maxTaskRetries)), nil
}

// EnqueuePublish asks a worker to publish reelID once delay has passed.
// The worker re-checks the scheduled post, so stale tasks left behind by a
// reschedule are harmless.
func (q *Queue) EnqueuePublish(ctx context.Context, reelID int64, delay time.Duration) error {
	if q.client == nil {
		return ErrNoClient
	}
	if delay < 0 {
		delay = 0
	}

	task, err := NewPublishReelTask(reelID)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	slog.Info("publish task scheduled", "reel_id", reelID, "task_id", info.ID, "process_at", info.NextProcessAt)
	return nil
}

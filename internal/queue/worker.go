package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/reelflow/internal/lifecycle"
)

// HandlePublishReelTask publishes the reel named by the task. Lifecycle
// outcomes are final for the task; publish retries are counted on the
// scheduled post instead. Only storage errors are handed back to asynq.
func (w *Worker) HandlePublishReelTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishReelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}

	result, err := w.reels.Publish(ctx, payload.ReelID)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case lifecycle.OK:
		slog.Info("reel published from queue", "reel_id", payload.ReelID)
	case lifecycle.Failed:
		slog.Error("queued publish failed", "reel_id", payload.ReelID, "message", result.Message)
	default:
		slog.Info("queued publish skipped", "reel_id", payload.ReelID, "outcome", result.Outcome, "message", result.Message)
	}
	return nil
}

func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishReel, w.HandlePublishReelTask)
	return mux
}

func NewServer(redis asynq.RedisConnOpt, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 2
	}
	return asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		Logger:      slogLogger{},
	})
}

type slogLogger struct{}

func (slogLogger) Debug(args ...interface{}) { slog.Debug(fmt.Sprint(args...)) }
func (slogLogger) Info(args ...interface{})  { slog.Info(fmt.Sprint(args...)) }
func (slogLogger) Warn(args ...interface{})  { slog.Warn(fmt.Sprint(args...)) }
func (slogLogger) Error(args ...interface{}) { slog.Error(fmt.Sprint(args...)) }
func (slogLogger) Fatal(args ...interface{}) { slog.Error(fmt.Sprint(args...)) }

package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/reelflow/internal/lifecycle"
)

// ReelPublisher publishes a reel whose scheduled post is due.
type ReelPublisher interface {
	Publish(ctx context.Context, reelID int64) (lifecycle.Result, error)
}

// Queue enqueues delayed publish tasks.
type Queue struct {
	client *asynq.Client
}

func NewQueue(client *asynq.Client) *Queue {
	return &Queue{client: client}
}

// Worker runs publish tasks against the reel service.
type Worker struct {
	reels ReelPublisher
}

func NewWorker(reels ReelPublisher) *Worker {
	return &Worker{reels: reels}
}

const TaskTypePublishReel = "reel:publish"

type PublishReelPayload struct {
	ReelID int64 `json:"reel_id"`
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/reelflow/internal/lifecycle"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReels struct {
	result lifecycle.Result
	err    error
	calls  []int64
}

func (f *fakeReels) Publish(_ context.Context, reelID int64) (lifecycle.Result, error) {
	f.calls = append(f.calls, reelID)
	return f.result, f.err
}

func TestNewPublishReelTask(t *testing.T) {
	task, err := NewPublishReelTask(42)
	require.NoError(t, err)
	assert.Equal(t, TaskTypePublishReel, task.Type())

	var payload PublishReelPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, int64(42), payload.ReelID)
}

func TestHandlePublishReelTask(t *testing.T) {
	task, err := NewPublishReelTask(7)
	require.NoError(t, err)

	for _, outcome := range []lifecycle.Outcome{lifecycle.OK, lifecycle.Conflict, lifecycle.Failed, lifecycle.NotFound} {
		reels := &fakeReels{result: lifecycle.Result{Outcome: outcome, Reel: &models.GeneratedReel{ID: 7}}}
		w := NewWorker(reels)

		assert.NoError(t, w.HandlePublishReelTask(context.Background(), task), outcome)
		assert.Equal(t, []int64{7}, reels.calls)
	}
}

func TestHandlePublishReelTaskStoreError(t *testing.T) {
	task, err := NewPublishReelTask(7)
	require.NoError(t, err)

	boom := errors.New("database is locked")
	w := NewWorker(&fakeReels{err: boom})
	assert.ErrorIs(t, w.HandlePublishReelTask(context.Background(), task), boom)
}

func TestHandlePublishReelTaskBadPayload(t *testing.T) {
	reels := &fakeReels{}
	w := NewWorker(reels)

	err := w.HandlePublishReelTask(context.Background(), asynq.NewTask(TaskTypePublishReel, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, reels.calls)
}

func TestEnqueuePublishWithoutClient(t *testing.T) {
	q := NewQueue(nil)
	assert.ErrorIs(t, q.EnqueuePublish(context.Background(), 1, time.Minute), ErrNoClient)
}

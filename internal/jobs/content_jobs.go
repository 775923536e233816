package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/notifications"
	"github.com/maheshrc27/reelflow/internal/scheduling"
)

const (
	metricsWindow  = 7 * 24 * time.Hour
	publishSlotJob = "publish_slot"
)

// ContentService is the part of the reel service the recurring jobs drive.
type ContentService interface {
	Generate(ctx context.Context, count int, theme string) ([]*models.GeneratedReel, error)
	QueueStatus(ctx context.Context) (*models.QueueStatus, error)
	ResolveCalendar(ctx context.Context) ([]*models.CalendarEntry, error)
	CollectMetrics(ctx context.Context, window time.Duration) (int, error)
	PublishDue(ctx context.Context) (int, error)
	ScheduleConfig(ctx context.Context) (*models.ScheduleSettings, error)
	OnScheduleChange(fn func(*models.ScheduleSettings))
}

type ContentJobs struct {
	reels      ContentService
	notifier   notifications.Notifier
	automation config.Automation
	target     int
}

func NewContentJobs(reels ContentService, notifier notifications.Notifier, content *config.Content) *ContentJobs {
	if content == nil {
		content = config.DefaultContent()
	}
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	return &ContentJobs{
		reels:      reels,
		notifier:   notifier,
		automation: content.Automation,
		target:     content.Content.QueueTarget,
	}
}

// GenerateContent tops the review queue up to the configured target.
func (j *ContentJobs) GenerateContent(ctx context.Context) error {
	status, err := j.reels.QueueStatus(ctx)
	if err != nil {
		return fmt.Errorf("queue status: %w", err)
	}

	size := status.Pending + status.Approved
	shortage := j.target - size
	if shortage <= 0 {
		slog.Info("queue is full, nothing to generate", "queue_size", size, "target", j.target)
		return nil
	}

	slog.Info("generating reels", "count", shortage, "queue_size", size, "target", j.target)
	reels, err := j.reels.Generate(ctx, shortage, "")
	if err != nil {
		return err
	}
	slog.Info("generation finished", "requested", shortage, "generated", len(reels))
	return nil
}

func (j *ContentJobs) CheckQueue(ctx context.Context) error {
	status, err := j.reels.QueueStatus(ctx)
	if err != nil {
		return fmt.Errorf("queue status: %w", err)
	}

	if status.Pending < j.automation.MinPendingReels {
		msg := fmt.Sprintf("Queue low: %d reels pending review, %d approved", status.Pending, status.Approved)
		if err := j.notifier.Notify(ctx, notifications.LevelWarning, msg); err != nil {
			slog.Warn("notification failed", "error", err)
		}
	}
	return nil
}

func (j *ContentJobs) CheckCalendar(ctx context.Context) error {
	entries, err := j.reels.ResolveCalendar(ctx)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		slog.Info("calendar entries resolved", "count", len(entries))
	}
	return nil
}

func (j *ContentJobs) CollectMetrics(ctx context.Context) error {
	n, err := j.reels.CollectMetrics(ctx, metricsWindow)
	slog.Info("metrics collected", "posts", n)
	return err
}

func (j *ContentJobs) PublishScheduled(ctx context.Context) error {
	n, err := j.reels.PublishDue(ctx)
	if n > 0 {
		slog.Info("scheduled posts published", "count", n)
	}
	return err
}

// Register adds every recurring job to s, including one weekly publish job
// per configured slot. Slot changes re-register the weekly jobs.
func (j *ContentJobs) Register(ctx context.Context, s *scheduling.Scheduler) error {
	a := j.automation
	s.Every("generate_content", a.GenerateInterval, a.MisfireGrace, j.GenerateContent)
	s.Every("queue_check", a.QueueCheckInterval, a.MisfireGrace, j.CheckQueue)
	s.Every("calendar_check", a.CalendarCheckInterval, a.MisfireGrace, j.CheckCalendar)
	s.Every("metrics", a.MetricsInterval, a.MisfireGrace, j.CollectMetrics)
	s.Every("publish_scheduled", a.PublishCheckInterval, a.MisfireGrace, j.PublishScheduled)

	settings, err := j.reels.ScheduleConfig(ctx)
	if err != nil {
		return fmt.Errorf("load schedule config: %w", err)
	}
	if err := s.ReplaceWeekly(publishSlotJob, settings.Slots, settings.Timezone, a.PublishGrace, j.PublishScheduled); err != nil {
		return err
	}

	j.reels.OnScheduleChange(func(settings *models.ScheduleSettings) {
		if err := s.ReplaceWeekly(publishSlotJob, settings.Slots, settings.Timezone, a.PublishGrace, j.PublishScheduled); err != nil {
			slog.Error("could not reload publish slots", "error", err)
			return
		}
		slog.Info("publish slots reloaded", "slots", len(settings.Slots), "timezone", settings.Timezone)
	})
	return nil
}

// ErrorHandler turns job failures into error notifications.
func ErrorHandler(notifier notifications.Notifier) scheduling.ErrorHandler {
	return func(ctx context.Context, job string, err error) {
		msg := fmt.Sprintf("Job %s failed: %v", job, err)
		if nerr := notifier.Notify(ctx, notifications.LevelError, msg); nerr != nil {
			slog.Warn("notification failed", "job", job, "error", nerr)
		}
	}
}

package service

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/lifecycle"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/notifications"
	"github.com/maheshrc27/reelflow/internal/quality"
	"github.com/maheshrc27/reelflow/internal/render"
	"github.com/maheshrc27/reelflow/internal/repository"
	"github.com/maheshrc27/reelflow/internal/scheduling"
	"github.com/maheshrc27/reelflow/internal/selection"
)

const (
	scheduleSearchWeeks  = 12
	defaultRenderTimeout = 5 * time.Minute
	aiQuoteAuthor        = "AI Generated"
)

type Selector interface {
	FindMatchingCombination(ctx context.Context, theme string) (*selection.Combination, error)
	UpdateUsageCounts(ctx context.Context, combo *selection.Combination) error
	NextTheme() string
}

// PublishTrigger arranges for a reel to be published after delay.
type PublishTrigger interface {
	EnqueuePublish(ctx context.Context, reelID int64, delay time.Duration) error
}

type ReelService interface {
	Generate(ctx context.Context, count int, theme string) ([]*models.GeneratedReel, error)
	Approve(ctx context.Context, reelID int64) (lifecycle.Result, error)
	Reject(ctx context.Context, reelID int64) (lifecycle.Result, error)
	Schedule(ctx context.Context, reelID int64) (lifecycle.Result, error)
	Reschedule(ctx context.Context, reelID int64, at time.Time) (lifecycle.Result, error)
	Unschedule(ctx context.Context, reelID int64) (lifecycle.Result, error)
	Publish(ctx context.Context, reelID int64) (lifecycle.Result, error)
	PublishNow(ctx context.Context, reelID int64) (lifecycle.Result, error)
	PublishDue(ctx context.Context) (int, error)

	QueueStatus(ctx context.Context) (*models.QueueStatus, error)
	Calendar(ctx context.Context, days int) ([]models.CalendarDay, error)
	ListReels(ctx context.Context, status string, limit int) ([]*models.ReelDetail, error)
	GetReel(ctx context.Context, reelID int64) (*models.ReelDetail, error)

	ScheduleConfig(ctx context.Context) (*models.ScheduleSettings, error)
	UpdateScheduleConfig(ctx context.Context, timezone string, slots []models.PostSlot) (*models.ScheduleSettings, error)
	OnScheduleChange(fn func(*models.ScheduleSettings))

	PlanCalendarEntry(ctx context.Context, date time.Time, timeSlot, theme string) (*models.CalendarEntry, error)
	ListCalendarEntries(ctx context.Context, from, to time.Time) ([]*models.CalendarEntry, error)
	AttachCalendarReel(ctx context.Context, entryID, reelID int64) (*models.CalendarEntry, error)
	ResolveCalendar(ctx context.Context) ([]*models.CalendarEntry, error)

	CollectMetrics(ctx context.Context, window time.Duration) (int, error)
	Analytics(ctx context.Context, window time.Duration, top int) (*models.AnalyticsReport, error)
}

type ReelServiceDeps struct {
	DB        *sql.DB
	Reels     repository.ReelRepository
	Scheduled repository.ScheduledPostRepository
	Entries   repository.CalendarRepository
	Published repository.PublishedPostRepository
	Metrics   repository.MetricsRepository
	Settings  repository.SettingsRepository
	Videos    repository.VideoRepository
	Music     repository.MusicRepository
	Quotes    repository.QuoteRepository

	Selector   Selector
	Pipeline   render.Pipeline
	Gate       *quality.Gate
	Publisher  Publisher
	Notifier   notifications.Notifier
	Captions   CaptionService
	Ideas      IdeaService
	Downloader AssetDownloader
	Trigger    PublishTrigger

	Content       *config.Content
	VideoDir      string
	MusicDir      string
	RenderTimeout time.Duration
	Now           func() time.Time
}

type reelService struct {
	ReelServiceDeps

	mu        sync.Mutex
	observers []func(*models.ScheduleSettings)
}

func NewReelService(deps ReelServiceDeps) ReelService {
	if deps.Content == nil {
		deps.Content = config.DefaultContent()
	}
	if deps.Gate == nil {
		deps.Gate = quality.NewGate(deps.Content.Content.QualityThreshold, nil)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.Noop{}
	}
	if deps.Captions == nil {
		deps.Captions = NewCaptionService("", "", deps.Content)
	}
	if deps.RenderTimeout <= 0 {
		deps.RenderTimeout = defaultRenderTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &reelService{ReelServiceDeps: deps}
}

func (s *reelService) now() time.Time {
	return s.Now().UTC()
}

func (s *reelService) notify(ctx context.Context, level notifications.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if err := s.Notifier.Notify(ctx, level, msg); err != nil {
		slog.Warn("notification failed", "level", level, "error", err)
	}
}

// Generate renders up to count reels. Iterations fail independently; the
// reels that made it through the quality gate are returned.
func (s *reelService) Generate(ctx context.Context, count int, theme string) ([]*models.GeneratedReel, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	var reels []*models.GeneratedReel
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}

		reel, err := s.generateOne(ctx, theme)
		switch {
		case err == nil:
			slog.Info("reel generated", "reel_id", reel.ID, "iteration", i+1, "count", count)
			reels = append(reels, reel)
		case errors.Is(err, ErrSelectionExhausted), errors.Is(err, ErrQualityRejected):
			slog.Warn("generation skipped", "iteration", i+1, "error", err)
			s.notify(ctx, notifications.LevelWarning, "Reel generation skipped: %v", err)
		default:
			slog.Error("generation failed", "iteration", i+1, "error", err)
			s.notify(ctx, notifications.LevelError, "Error generating reel: %v", err)
		}
	}
	return reels, nil
}

func (s *reelService) generateOne(ctx context.Context, theme string) (*models.GeneratedReel, error) {
	if theme == "" && s.Content.Content.ThemeRotation {
		theme = s.Selector.NextTheme()
	}

	var idea *ContentIdea
	if s.Ideas != nil {
		var err error
		idea, err = s.Ideas.Idea(ctx, theme)
		if err != nil {
			slog.Warn("idea generation failed, using stored quotes", "error", err)
			idea = nil
		} else if idea.Theme != "" {
			if _, ok := s.Content.Content.Themes[idea.Theme]; ok || theme == "" {
				theme = idea.Theme
			}
		}
	}

	var combo *selection.Combination
	if idea != nil && s.Downloader != nil {
		downloaded, err := s.downloadCombination(ctx, idea, theme)
		if err != nil {
			slog.Warn("asset download failed, using stored assets", "error", err)
		}
		combo = downloaded
	}
	if combo == nil {
		selected, err := s.Selector.FindMatchingCombination(ctx, theme)
		if err != nil {
			return nil, err
		}
		combo = selected
	}

	var quoteText, quoteAuthor string
	if combo.Quote != nil {
		quoteText, quoteAuthor = combo.Quote.Text, combo.Quote.Author
	}
	caption := ""
	if idea != nil {
		quoteText, quoteAuthor, caption = idea.Quote, aiQuoteAuthor, idea.Caption
	}
	if caption == "" {
		energy, _ := s.Content.EnergyFor(combo.Theme)
		caption = s.Captions.Caption(ctx, CaptionRequest{
			Quote:       quoteText,
			Author:      quoteAuthor,
			Theme:       combo.Theme,
			MusicEnergy: energy,
		})
	}

	req := render.Request{
		VideoPath:   filepath.Join(s.VideoDir, combo.Video.Filename),
		MusicPath:   filepath.Join(s.MusicDir, combo.Music.Filename),
		QuoteText:   quoteText,
		QuoteAuthor: quoteAuthor,
		Theme:       combo.Theme,
		Duration:    combo.Video.Duration,
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.RenderTimeout)
	defer cancel()

	var artifact *render.Artifact
	var err error
	if idea != nil && idea.Hook != "" && idea.Payoff != "" {
		artifact, err = s.Pipeline.GenerateTwoPart(renderCtx, render.TwoPartRequest{Request: req, Hook: idea.Hook, Payoff: idea.Payoff})
	} else {
		artifact, err = s.Pipeline.Generate(renderCtx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", combo, err)
	}

	ok, reason, err := s.Gate.IsAcceptable(ctx, &quality.Artifact{OutputPath: artifact.OutputPath, QualityScore: artifact.QualityScore})
	if err != nil {
		return nil, fmt.Errorf("quality check: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQualityRejected, reason)
	}

	if idea != nil {
		quote := &models.Quote{Text: idea.Quote, Author: aiQuoteAuthor, Category: combo.Theme}
		id, err := s.Quotes.Create(ctx, quote)
		if err != nil {
			return nil, fmt.Errorf("store generated quote: %w", err)
		}
		quote.ID = id
		combo.Quote = quote
	}

	reel := &models.GeneratedReel{
		VideoID:      combo.Video.ID,
		MusicID:      combo.Music.ID,
		QuoteID:      combo.Quote.ID,
		OutputPath:   artifact.OutputPath,
		Caption:      caption,
		Theme:        combo.Theme,
		Duration:     artifact.Duration,
		FileSize:     artifact.FileSize,
		QualityScore: artifact.QualityScore,
		Status:       models.ReelStatusPending,
		CreatedAt:    s.now(),
	}
	id, err := s.Reels.Create(ctx, reel)
	if err != nil {
		return nil, fmt.Errorf("store reel: %w", err)
	}
	reel.ID = id

	if err := s.Selector.UpdateUsageCounts(ctx, combo); err != nil {
		slog.Error("usage update failed", "reel_id", id, "error", err)
	}

	s.notify(ctx, notifications.LevelInfo,
		"New reel #%d ready for review\nTheme: %s\nVideo: %s\nMusic: %s\nQuote: %s\nQuality: %.2f\n\n%s",
		id, combo.Theme, combo.Video.Filename, combo.Music.Filename, quoteText, reel.QualityScore, caption)

	return reel, nil
}

// downloadCombination fetches fresh footage and music for idea and
// registers them as assets. The quote is filled in once the reel passes
// the quality gate.
func (s *reelService) downloadCombination(ctx context.Context, idea *ContentIdea, theme string) (*selection.Combination, error) {
	if len(idea.VideoSearchTerms) == 0 || len(idea.MusicSearchTerms) == 0 {
		return nil, errors.New("idea has no search terms")
	}
	if theme == "" {
		theme = idea.Theme
	}

	va, err := s.Downloader.DownloadVideo(ctx, idea.VideoSearchTerms)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	ma, err := s.Downloader.DownloadMusic(ctx, idea.MusicSearchTerms)
	if err != nil {
		return nil, fmt.Errorf("download music: %w", err)
	}

	video, err := s.Videos.GetByFilename(ctx, va.Filename)
	if err != nil {
		return nil, err
	}
	if video == nil {
		video = &models.Video{
			Filename:   va.Filename,
			Source:     va.Source,
			URL:        va.URL,
			Duration:   va.Duration,
			Resolution: va.Resolution,
			Tags:       strings.Join(idea.VideoSearchTerms, ","),
			Theme:      theme,
			CreatedAt:  s.now(),
		}
		if video.ID, err = s.Videos.Create(ctx, video); err != nil {
			return nil, fmt.Errorf("store downloaded video: %w", err)
		}
		slog.Info("registered downloaded video", "video_id", video.ID, "filename", video.Filename)
	}

	music, err := s.Music.GetByFilename(ctx, ma.Filename)
	if err != nil {
		return nil, err
	}
	if music == nil {
		energy, ok := s.Content.EnergyFor(theme)
		if !ok {
			energy = models.EnergyHigh
		}
		music = &models.Music{
			Filename:    ma.Filename,
			Source:      ma.Source,
			URL:         ma.URL,
			Duration:    ma.Duration,
			Tags:        strings.Join(idea.MusicSearchTerms, ","),
			EnergyLevel: energy,
			CreatedAt:   s.now(),
		}
		if music.ID, err = s.Music.Create(ctx, music); err != nil {
			return nil, fmt.Errorf("store downloaded music: %w", err)
		}
		slog.Info("registered downloaded music", "music_id", music.ID, "filename", music.Filename)
	}

	return &selection.Combination{Video: video, Music: music, Theme: theme}, nil
}

func (s *reelService) Approve(ctx context.Context, reelID int64) (lifecycle.Result, error) {
	reel, err := s.Reels.GetByID(ctx, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if reel == nil {
		return lifecycle.Missing(reelID), nil
	}
	if !lifecycle.CanTransition(reel.Status, models.ReelStatusApproved) {
		return lifecycle.Invalid(reel, "approve"), nil
	}

	ok, err := s.Reels.UpdateStatus(ctx, nil, reelID, reel.Status, models.ReelStatusApproved, s.now())
	if err != nil {
		return lifecycle.Result{}, err
	}
	if reel, err = s.Reels.GetByID(ctx, reelID); err != nil {
		return lifecycle.Result{}, err
	}
	if reel == nil {
		return lifecycle.Missing(reelID), nil
	}
	if !ok {
		return lifecycle.Invalid(reel, "approve"), nil
	}

	if err := s.Entries.UpdateStatusByReel(ctx, reelID, []string{models.CalendarStatusPending}, models.CalendarStatusApproved); err != nil {
		slog.Error("calendar update failed", "reel_id", reelID, "error", err)
	}

	scheduled, err := s.Schedule(ctx, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}

	result := lifecycle.Success(reel, scheduled.Scheduled)
	if scheduled.OK() {
		result.Message = fmt.Sprintf("reel %d approved; %s", reelID, scheduled.Message)
	} else {
		result.Message = fmt.Sprintf("reel %d approved but not scheduled: %s", reelID, scheduled.Message)
	}
	return result, nil
}

func (s *reelService) Reject(ctx context.Context, reelID int64) (result lifecycle.Result, err error) {
	reel, err := s.Reels.GetByID(ctx, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if reel == nil {
		return lifecycle.Missing(reelID), nil
	}
	if !lifecycle.CanTransition(reel.Status, models.ReelStatusRejected) {
		return lifecycle.Invalid(reel, "reject"), nil
	}
	wasApproved := reel.Status == models.ReelStatusApproved

	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return lifecycle.Result{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	ok, err := s.Reels.UpdateStatus(ctx, tx, reelID, reel.Status, models.ReelStatusRejected, s.now())
	if err != nil {
		return lifecycle.Result{}, err
	}
	if !ok {
		tx.Rollback()
		current, err := s.Reels.GetByID(ctx, reelID)
		if err != nil {
			return lifecycle.Result{}, err
		}
		if current == nil {
			return lifecycle.Missing(reelID), nil
		}
		return lifecycle.Invalid(current, "reject"), nil
	}

	if wasApproved {
		if _, err = s.Scheduled.Delete(ctx, tx, reelID); err != nil {
			return lifecycle.Result{}, fmt.Errorf("delete scheduled post: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return lifecycle.Result{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.Entries.UpdateStatusByReel(ctx, reelID, []string{models.CalendarStatusPending, models.CalendarStatusApproved}, models.CalendarStatusSkipped); err != nil {
		slog.Error("calendar update failed", "reel_id", reelID, "error", err)
	}

	reel, err = s.Reels.GetByID(ctx, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	result = lifecycle.Success(reel, nil)
	result.Message = fmt.Sprintf("reel %d rejected", reelID)
	return result, nil
}

// Schedule books the earliest free weekly slot for an approved reel. A reel
// that already has a scheduled post keeps it.
func (s *reelService) Schedule(ctx context.Context, reelID int64) (lifecycle.Result, error) {
	reel, err := s.Reels.GetByID(ctx, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if reel == nil {
		return lifecycle.Missing(reelID), nil
	}
	if reel.Status != models.ReelStatusApproved {
		return lifecycle.Invalid(reel, "schedule"), nil
	}

	settings, err := s.ScheduleConfig(ctx)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if len(settings.Slots) == 0 {
		return lifecycle.Conflicted(reel, "%v: no weekly posting slots configured", ErrSchedulingConflict), nil
	}
	loc, err := scheduling.LoadLocation(settings.Timezone)
	if err != nil {
		return lifecycle.Conflicted(reel, "%v: %v", ErrSchedulingConflict, err), nil
	}

	existing, err := s.Scheduled.GetByReelID(ctx, nil, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if existing != nil {
		result := lifecycle.Success(reel, existing)
		result.Message = "already scheduled for " + existing.ScheduledTime.In(loc).Format(scheduling.DateTimeLayout)
		return result, nil
	}

	now := s.now()
	taken, err := s.Scheduled.PendingTimes(ctx, now)
	if err != nil {
		return lifecycle.Result{}, err
	}
	at, free := scheduling.NextFreeTime(now, settings.Slots, loc, taken, scheduleSearchWeeks)
	if !free {
		slog.Warn("every slot is taken, doubling up", "reel_id", reelID, "time", at)
	}

	post, created, err := s.Scheduled.Create(ctx, nil, &models.ScheduledPost{
		ReelID:        reelID,
		ScheduledTime: at,
		Status:        models.PostStatusPending,
		CreatedAt:     now,
	})
	if err != nil {
		return lifecycle.Result{}, fmt.Errorf("create scheduled post: %w", err)
	}
	if created {
		s.trigger(ctx, reelID, post.ScheduledTime.Sub(now))
	}

	result := lifecycle.Success(reel, post)
	result.Message = "scheduled for " + post.ScheduledTime.In(loc).Format(scheduling.DateTimeLayout)
	return result, nil
}

func (s *reelService) trigger(ctx context.Context, reelID int64, delay time.Duration) {
	if s.Trigger == nil {
		return
	}
	if err := s.Trigger.EnqueuePublish(ctx, reelID, delay); err != nil {
		slog.Warn("could not enqueue publish task, the publish job will pick it up", "reel_id", reelID, "error", err)
	}
}

func (s *reelService) Reschedule(ctx context.Context, reelID int64, at time.Time) (lifecycle.Result, error) {
	reel, err := s.Reels.GetByID(ctx, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if reel == nil {
		return lifecycle.Missing(reelID), nil
	}

	now := s.now()
	at = at.UTC()
	if !at.After(now) {
		return lifecycle.Conflicted(reel, "%v: %s is in the past", ErrSchedulingConflict, at.Format(time.RFC3339)), nil
	}
	if reel.Status != models.ReelStatusApproved {
		return lifecycle.Invalid(reel, "reschedule"), nil
	}

	existing, err := s.Scheduled.GetByReelID(ctx, nil, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if existing == nil {
		if _, _, err := s.Scheduled.Create(ctx, nil, &models.ScheduledPost{
			ReelID:        reelID,
			ScheduledTime: at,
			Status:        models.PostStatusPending,
			CreatedAt:     now,
		}); err != nil {
			return lifecycle.Result{}, fmt.Errorf("create scheduled post: %w", err)
		}
	} else {
		ok, err := s.Scheduled.Reschedule(ctx, reelID, at)
		if err != nil {
			return lifecycle.Result{}, err
		}
		if !ok {
			return lifecycle.Conflicted(reel, "%v: scheduled post for reel %d is %s", ErrSchedulingConflict, reelID, existing.Status), nil
		}
	}
	s.trigger(ctx, reelID, at.Sub(now))

	post, err := s.Scheduled.GetByReelID(ctx, nil, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	result := lifecycle.Success(reel, post)
	result.Message = "rescheduled to " + at.Format(time.RFC3339)
	return result, nil
}

func (s *reelService) Unschedule(ctx context.Context, reelID int64) (lifecycle.Result, error) {
	reel, err := s.Reels.GetByID(ctx, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if reel == nil {
		return lifecycle.Missing(reelID), nil
	}

	post, err := s.Scheduled.GetByReelID(ctx, nil, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if post == nil {
		return lifecycle.Conflicted(reel, "reel %d is not scheduled", reelID), nil
	}
	if post.Status == models.PostStatusPublished {
		return lifecycle.Invalid(reel, "unschedule"), nil
	}

	if _, err := s.Scheduled.Delete(ctx, nil, reelID); err != nil {
		return lifecycle.Result{}, err
	}

	result := lifecycle.Success(reel, nil)
	result.Message = fmt.Sprintf("schedule removed for reel %d", reelID)
	return result, nil
}

// Publish publishes an approved reel whose scheduled post is due.
func (s *reelService) Publish(ctx context.Context, reelID int64) (lifecycle.Result, error) {
	reel, err := s.Reels.GetByID(ctx, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if reel == nil {
		return lifecycle.Missing(reelID), nil
	}
	if reel.Status != models.ReelStatusApproved {
		return lifecycle.Invalid(reel, "publish"), nil
	}

	post, err := s.Scheduled.GetByReelID(ctx, nil, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if post == nil || post.Status != models.PostStatusPending || post.ScheduledTime.After(s.now()) {
		return lifecycle.Conflicted(reel, "reel %d has no due scheduled post", reelID), nil
	}

	return s.publish(ctx, reel, post)
}

// PublishNow publishes an approved reel immediately, creating or reviving
// its scheduled post.
func (s *reelService) PublishNow(ctx context.Context, reelID int64) (lifecycle.Result, error) {
	reel, err := s.Reels.GetByID(ctx, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if reel == nil {
		return lifecycle.Missing(reelID), nil
	}
	if reel.Status != models.ReelStatusApproved {
		return lifecycle.Invalid(reel, "publish"), nil
	}

	now := s.now()
	post, err := s.Scheduled.GetByReelID(ctx, nil, reelID)
	if err != nil {
		return lifecycle.Result{}, err
	}

	switch {
	case post == nil:
		post, _, err = s.Scheduled.Create(ctx, nil, &models.ScheduledPost{
			ReelID:        reelID,
			ScheduledTime: now,
			Status:        models.PostStatusPending,
			CreatedAt:     now,
		})
		if err != nil {
			return lifecycle.Result{}, fmt.Errorf("create scheduled post: %w", err)
		}
	case post.Status == models.PostStatusFailed:
		if _, err := s.Scheduled.Reschedule(ctx, reelID, now); err != nil {
			return lifecycle.Result{}, err
		}
		if post, err = s.Scheduled.GetByReelID(ctx, nil, reelID); err != nil {
			return lifecycle.Result{}, err
		}
	case post.Status != models.PostStatusPending:
		return lifecycle.Conflicted(reel, "scheduled post for reel %d is %s", reelID, post.Status), nil
	}

	return s.publish(ctx, reel, post)
}

// PublishDue publishes every pending scheduled post whose time has come and
// returns how many went out.
func (s *reelService) PublishDue(ctx context.Context) (int, error) {
	due, err := s.Scheduled.Due(ctx, s.now(), 0)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, post := range due {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}

		reel, err := s.Reels.GetByID(ctx, post.ReelID)
		if err != nil {
			return published, err
		}
		if reel == nil || reel.Status != models.ReelStatusApproved {
			slog.Warn("skipping scheduled post for unpublishable reel", "reel_id", post.ReelID)
			continue
		}

		result, err := s.publish(ctx, reel, post)
		if err != nil {
			return published, err
		}
		if result.OK() {
			published++
		}
	}
	return published, nil
}

func (s *reelService) publish(ctx context.Context, reel *models.GeneratedReel, post *models.ScheduledPost) (result lifecycle.Result, err error) {
	if err := s.checkArtifact(reel.OutputPath); err != nil {
		return s.publishFailed(ctx, reel, post, err)
	}
	if s.Publisher == nil {
		return s.publishFailed(ctx, reel, post, ErrNotConfigured)
	}

	published, err := s.Publisher.Publish(ctx, PublishRequest{
		ReelID:    reel.ID,
		VideoPath: reel.OutputPath,
		Caption:   reel.Caption,
	})
	if err != nil {
		return s.publishFailed(ctx, reel, post, err)
	}

	now := s.now()
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return lifecycle.Result{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	ok, err := s.Reels.UpdateStatus(ctx, tx, reel.ID, models.ReelStatusApproved, models.ReelStatusPublished, now)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if !ok {
		err = fmt.Errorf("reel %d changed state while publishing as %s", reel.ID, published.ExternalID)
		return lifecycle.Result{}, err
	}
	if _, err = s.Scheduled.MarkPublished(ctx, tx, post.ID, now); err != nil {
		return lifecycle.Result{}, err
	}
	if _, err = s.Published.Create(ctx, tx, &models.PublishedPost{
		ReelID:      reel.ID,
		Platform:    published.Platform,
		ExternalID:  published.ExternalID,
		URL:         published.URL,
		Caption:     reel.Caption,
		PublishedAt: now,
	}); err != nil {
		return lifecycle.Result{}, err
	}
	if err = tx.Commit(); err != nil {
		return lifecycle.Result{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.Entries.UpdateStatusByReel(ctx, reel.ID, []string{models.CalendarStatusPending, models.CalendarStatusApproved}, models.CalendarStatusPublished); err != nil {
		slog.Error("calendar update failed", "reel_id", reel.ID, "error", err)
	}

	s.notify(ctx, notifications.LevelSuccess, "Reel #%d published to %s %s", reel.ID, published.Platform, published.URL)

	reel, err = s.Reels.GetByID(ctx, reel.ID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	post, err = s.Scheduled.GetByReelID(ctx, nil, reel.ID)
	if err != nil {
		return lifecycle.Result{}, err
	}
	result = lifecycle.Success(reel, post)
	result.Message = fmt.Sprintf("published as %s", published.ExternalID)
	return result, nil
}

func (s *reelService) checkArtifact(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("artifact missing at %s", path)
	}
	ok, err := quality.IsVideoFile(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("artifact at %s is not a video", path)
	}
	return nil
}

func (s *reelService) publishFailed(ctx context.Context, reel *models.GeneratedReel, post *models.ScheduledPost, cause error) (lifecycle.Result, error) {
	slog.Error("publish failed", "reel_id", reel.ID, "error", cause)

	updated, err := s.Scheduled.RecordFailure(ctx, post.ID, cause.Error(), s.Content.Content.MaxPublishRetries)
	if err != nil {
		return lifecycle.Result{}, err
	}
	if updated == nil {
		updated = post
	}

	if updated.Status == models.PostStatusFailed {
		s.notify(ctx, notifications.LevelError, "Giving up on reel #%d after %d attempts: %v", reel.ID, updated.RetryCount, cause)
	} else {
		s.notify(ctx, notifications.LevelWarning, "Publishing reel #%d failed (attempt %d): %v", reel.ID, updated.RetryCount, cause)
	}

	return lifecycle.Failure(reel, updated, fmt.Errorf("%w: %v", ErrPublishFailure, cause)), nil
}

func (s *reelService) QueueStatus(ctx context.Context) (*models.QueueStatus, error) {
	counts, err := s.Reels.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	scheduled, err := s.Scheduled.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	return &models.QueueStatus{
		Pending:        counts[models.ReelStatusPending],
		Approved:       counts[models.ReelStatusApproved],
		Rejected:       counts[models.ReelStatusRejected],
		Published:      counts[models.ReelStatusPublished],
		ScheduledPosts: scheduled,
		Target:         s.Content.Content.QueueTarget,
	}, nil
}

// Calendar groups the scheduled posts of the next days by local date.
func (s *reelService) Calendar(ctx context.Context, days int) ([]models.CalendarDay, error) {
	if days <= 0 {
		days = 7
	}
	loc, err := s.location(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items, err := s.Scheduled.Upcoming(ctx, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	var calendar []models.CalendarDay
	for _, item := range items {
		date := item.ScheduledTime.In(loc).Format("2006-01-02")
		if n := len(calendar); n == 0 || calendar[n-1].Date != date {
			calendar = append(calendar, models.CalendarDay{Date: date})
		}
		day := &calendar[len(calendar)-1]
		day.Items = append(day.Items, item)
	}
	return calendar, nil
}

func (s *reelService) ListReels(ctx context.Context, status string, limit int) ([]*models.ReelDetail, error) {
	return s.Reels.ListDetails(ctx, status, limit)
}

func (s *reelService) GetReel(ctx context.Context, reelID int64) (*models.ReelDetail, error) {
	return s.Reels.GetDetail(ctx, reelID)
}

// ScheduleConfig returns the stored slot settings, falling back to the
// content file.
func (s *reelService) ScheduleConfig(ctx context.Context) (*models.ScheduleSettings, error) {
	settings, err := s.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	slots, err := scheduling.SlotsFromConfig(s.Content.Scheduling.PostTimes)
	if err != nil {
		return nil, err
	}
	return &models.ScheduleSettings{Timezone: s.Content.Scheduling.Timezone, Slots: slots}, nil
}

func (s *reelService) UpdateScheduleConfig(ctx context.Context, timezone string, slots []models.PostSlot) (*models.ScheduleSettings, error) {
	if _, err := scheduling.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	for _, slot := range slots {
		if err := scheduling.ValidateSlot(slot); err != nil {
			return nil, err
		}
	}
	sorted := append([]models.PostSlot(nil), slots...)
	scheduling.SortSlots(sorted)

	settings := &models.ScheduleSettings{ID: 1, Timezone: timezone, Slots: sorted, UpdatedAt: s.now()}
	if err := s.Settings.Save(ctx, settings); err != nil {
		return nil, err
	}

	s.mu.Lock()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(settings)
	}
	return settings, nil
}

// OnScheduleChange registers fn to run after every schedule update.
func (s *reelService) OnScheduleChange(fn func(*models.ScheduleSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *reelService) location(ctx context.Context) (*time.Location, error) {
	settings, err := s.ScheduleConfig(ctx)
	if err != nil {
		return nil, err
	}
	return scheduling.LoadLocation(settings.Timezone)
}

// PlanCalendarEntry adds a plan entry for the local date and HH:MM slot.
func (s *reelService) PlanCalendarEntry(ctx context.Context, date time.Time, timeSlot, theme string) (*models.CalendarEntry, error) {
	hour, minute, err := scheduling.ParseClock(timeSlot)
	if err != nil {
		return nil, err
	}
	loc, err := s.location(ctx)
	if err != nil {
		return nil, err
	}

	local := date.In(loc)
	entry := &models.CalendarEntry{
		EntryDate: time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc).UTC(),
		TimeSlot:  fmt.Sprintf("%02d:%02d", hour, minute),
		Theme:     theme,
		Status:    models.CalendarStatusPending,
	}
	id, err := s.Entries.Create(ctx, entry)
	if err != nil {
		return nil, err
	}
	return s.Entries.GetByID(ctx, id)
}

func (s *reelService) ListCalendarEntries(ctx context.Context, from, to time.Time) ([]*models.CalendarEntry, error) {
	return s.Entries.List(ctx, from, to)
}

func (s *reelService) AttachCalendarReel(ctx context.Context, entryID, reelID int64) (*models.CalendarEntry, error) {
	entry, err := s.Entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("calendar entry %d: %w", entryID, ErrNotFound)
	}
	reel, err := s.Reels.GetByID(ctx, reelID)
	if err != nil {
		return nil, err
	}
	if reel == nil {
		return nil, fmt.Errorf("reel %d: %w", reelID, ErrNotFound)
	}

	var status string
	switch reel.Status {
	case models.ReelStatusPending:
		status = models.CalendarStatusPending
	case models.ReelStatusApproved:
		status = models.CalendarStatusApproved
	case models.ReelStatusPublished:
		status = models.CalendarStatusPublished
	default:
		return nil, fmt.Errorf("cannot attach reel %d in status %s", reelID, reel.Status)
	}

	if err := s.Entries.AttachReel(ctx, entryID, reelID, status); err != nil {
		return nil, err
	}
	return s.Entries.GetByID(ctx, entryID)
}

// ResolveCalendar publishes the reels of approved entries that are due and
// returns those entries, earliest first. Due entries that never got a reel
// are skipped.
func (s *reelService) ResolveCalendar(ctx context.Context) ([]*models.CalendarEntry, error) {
	due, err := s.Entries.Due(ctx, s.now())
	if err != nil {
		return nil, err
	}

	var resolved []*models.CalendarEntry
	for _, entry := range due {
		if entry.Status == models.CalendarStatusPending {
			if entry.ReelID == nil {
				if err := s.Entries.UpdateStatus(ctx, entry.ID, models.CalendarStatusSkipped); err != nil {
					return resolved, err
				}
				slog.Info("calendar entry skipped, no reel attached", "entry_id", entry.ID)
			}
			continue
		}

		resolved = append(resolved, entry)
		if entry.ReelID == nil {
			continue
		}

		post, err := s.Scheduled.GetByReelID(ctx, nil, *entry.ReelID)
		if err != nil {
			return resolved, err
		}
		if post != nil && post.Status == models.PostStatusFailed {
			if err := s.Entries.UpdateStatus(ctx, entry.ID, models.CalendarStatusSkipped); err != nil {
				return resolved, err
			}
			s.notify(ctx, notifications.LevelWarning, "Calendar entry %d skipped: reel #%d failed to publish", entry.ID, *entry.ReelID)
			continue
		}

		result, err := s.PublishNow(ctx, *entry.ReelID)
		if err != nil {
			return resolved, err
		}
		if !result.OK() {
			slog.Warn("calendar publish did not succeed", "entry_id", entry.ID, "reel_id", *entry.ReelID, "outcome", result.Outcome, "message", result.Message)
		}
	}
	return resolved, nil
}

// CollectMetrics stores a metrics snapshot for every post published within
// window. Publishers without metrics support collect nothing.
func (s *reelService) CollectMetrics(ctx context.Context, window time.Duration) (int, error) {
	source, ok := s.Publisher.(MetricsSource)
	if !ok {
		return 0, nil
	}

	posts, err := s.Published.ListSince(ctx, s.now().Add(-window))
	if err != nil {
		return 0, err
	}

	collected := 0
	var errs []error
	for _, p := range posts {
		m, err := source.Metrics(ctx, p.ExternalID)
		if err != nil {
			errs = append(errs, fmt.Errorf("post %s: %w", p.ExternalID, err))
			continue
		}
		m.PublishedPostID = p.ID
		m.CollectedAt = s.now()
		if _, err := s.Metrics.Create(ctx, m); err != nil {
			return collected, err
		}
		collected++
	}
	return collected, errors.Join(errs...)
}

// Analytics summarises the latest metrics of posts published within window
// and ranks the top posts by engagement rate.
func (s *reelService) Analytics(ctx context.Context, window time.Duration, top int) (*models.AnalyticsReport, error) {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	if top <= 0 {
		top = 5
	}

	report := &models.AnalyticsReport{Since: s.now().Add(-window).UTC(), Top: []*models.PostPerformance{}}
	posts, err := s.Published.ListSince(ctx, report.Since)
	if err != nil {
		return nil, err
	}
	report.Posts = len(posts)

	var measured []*models.PostPerformance
	themeRates := map[string][]float64{}
	for _, p := range posts {
		m, err := s.Metrics.Latest(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		perf := &models.PostPerformance{
			ReelID:      p.ReelID,
			Platform:    p.Platform,
			URL:         p.URL,
			Caption:     p.Caption,
			PublishedAt: p.PublishedAt,
			Metrics:     m,
		}
		reel, err := s.Reels.GetByID(ctx, p.ReelID)
		if err != nil {
			return nil, err
		}
		if reel != nil {
			perf.Theme = reel.Theme
		}

		report.Likes += m.Likes
		report.Comments += m.Comments
		report.Shares += m.Shares
		report.Saves += m.Saves
		report.Reach += m.Reach
		report.AvgEngagement += m.EngagementRate
		if perf.Theme != "" {
			themeRates[perf.Theme] = append(themeRates[perf.Theme], m.EngagementRate)
		}
		measured = append(measured, perf)
	}

	report.Measured = len(measured)
	if report.Measured > 0 {
		report.AvgEngagement /= float64(report.Measured)
	}

	bestRate := -1.0
	for _, theme := range slices.Sorted(maps.Keys(themeRates)) {
		rates := themeRates[theme]
		var sum float64
		for _, r := range rates {
			sum += r
		}
		if avg := sum / float64(len(rates)); avg > bestRate {
			bestRate, report.BestTheme = avg, theme
		}
	}

	slices.SortStableFunc(measured, func(a, b *models.PostPerformance) int {
		return cmp.Compare(b.Metrics.EngagementRate, a.Metrics.EngagementRate)
	})
	if len(measured) > top {
		measured = measured[:top]
	}
	report.Top = append(report.Top, measured...)
	return report, nil
}

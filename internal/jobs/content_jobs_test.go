package job

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/notifications"
	"github.com/maheshrc27/reelflow/internal/scheduling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	status    models.QueueStatus
	requested []int
	settings  models.ScheduleSettings
	observers []func(*models.ScheduleSettings)
	published int
	err       error
}

func (f *fakeService) Generate(_ context.Context, count int, _ string) ([]*models.GeneratedReel, error) {
	f.requested = append(f.requested, count)
	return make([]*models.GeneratedReel, count), nil
}

func (f *fakeService) QueueStatus(context.Context) (*models.QueueStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.status
	return &s, nil
}

func (f *fakeService) ResolveCalendar(context.Context) ([]*models.CalendarEntry, error) {
	return nil, f.err
}

func (f *fakeService) CollectMetrics(context.Context, time.Duration) (int, error) {
	return 0, f.err
}

func (f *fakeService) PublishDue(context.Context) (int, error) {
	f.published++
	return 1, f.err
}

func (f *fakeService) ScheduleConfig(context.Context) (*models.ScheduleSettings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeService) OnScheduleChange(fn func(*models.ScheduleSettings)) {
	f.observers = append(f.observers, fn)
}

type recorder struct {
	levels   []notifications.Level
	messages []string
}

func (r *recorder) Notify(_ context.Context, level notifications.Level, msg string) error {
	r.levels = append(r.levels, level)
	r.messages = append(r.messages, msg)
	return nil
}

func TestGenerateContentRequestsShortage(t *testing.T) {
	svc := &fakeService{status: models.QueueStatus{Pending: 1, Approved: 3}}
	jobs := NewContentJobs(svc, nil, config.DefaultContent())

	require.NoError(t, jobs.GenerateContent(context.Background()))
	assert.Equal(t, []int{3}, svc.requested)
}

func TestGenerateContentFullQueue(t *testing.T) {
	svc := &fakeService{status: models.QueueStatus{Pending: 5, Approved: 4}}
	jobs := NewContentJobs(svc, nil, config.DefaultContent())

	require.NoError(t, jobs.GenerateContent(context.Background()))
	assert.Empty(t, svc.requested)
}

func TestGenerateContentStoreError(t *testing.T) {
	svc := &fakeService{err: errors.New("disk full")}
	jobs := NewContentJobs(svc, nil, config.DefaultContent())

	assert.Error(t, jobs.GenerateContent(context.Background()))
}

func TestCheckQueueWarnsWhenLow(t *testing.T) {
	rec := &recorder{}
	svc := &fakeService{status: models.QueueStatus{Pending: 2, Approved: 5}}
	jobs := NewContentJobs(svc, rec, config.DefaultContent())

	require.NoError(t, jobs.CheckQueue(context.Background()))
	require.Len(t, rec.levels, 1)
	assert.Equal(t, notifications.LevelWarning, rec.levels[0])
	assert.Contains(t, rec.messages[0], "2 reels pending")

	svc.status.Pending = 3
	require.NoError(t, jobs.CheckQueue(context.Background()))
	assert.Len(t, rec.levels, 1)
}

func TestRegisterAddsJobsAndReloadsSlots(t *testing.T) {
	svc := &fakeService{settings: models.ScheduleSettings{
		Timezone: "UTC",
		Slots:    []models.PostSlot{{Weekday: 1, Hour: 18}},
	}}
	jobs := NewContentJobs(svc, nil, config.DefaultContent())
	s := scheduling.New()

	require.NoError(t, jobs.Register(context.Background(), s))
	names := jobNames(s)
	assert.ElementsMatch(t, []string{"generate_content", "queue_check", "calendar_check", "metrics", "publish_scheduled", "publish_slot_0"}, names)

	require.Len(t, svc.observers, 1)
	svc.observers[0](&models.ScheduleSettings{Timezone: "UTC", Slots: []models.PostSlot{{Weekday: 0, Hour: 9}, {Weekday: 4, Hour: 20}}})

	var slots []string
	for _, name := range jobNames(s) {
		if strings.HasPrefix(name, "publish_slot_") {
			slots = append(slots, name)
		}
	}
	assert.ElementsMatch(t, []string{"publish_slot_0", "publish_slot_1"}, slots)
}

func TestErrorHandlerNotifies(t *testing.T) {
	rec := &recorder{}
	ErrorHandler(rec)(context.Background(), "metrics", errors.New("rate limited"))

	require.Len(t, rec.levels, 1)
	assert.Equal(t, notifications.LevelError, rec.levels[0])
	assert.Equal(t, "Job metrics failed: rate limited", rec.messages[0])
}

func jobNames(s *scheduling.Scheduler) []string {
	var names []string
	for _, j := range s.Jobs() {
		names = append(names, j.Name)
	}
	return names
}

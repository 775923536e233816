package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppedClock returns the queued instants in order, repeating the last.
type steppedClock struct {
	mu    sync.Mutex
	times []time.Time
}

func (c *steppedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.times[0]
	if len(c.times) > 1 {
		c.times = c.times[1:]
	}
	return t
}

func TestWrapSkipsRunsPastGrace(t *testing.T) {
	due := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &steppedClock{times: []time.Time{due, due.Add(2 * time.Minute)}}
	s := New(WithClock(clock.Now))

	ran := false
	s.wrap("late", nil, time.Minute, func(context.Context) error {
		ran = true
		return nil
	})()
	assert.False(t, ran)
}

func TestWrapRunsWithinGraceAndReportsErrors(t *testing.T) {
	due := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &steppedClock{times: []time.Time{due, due.Add(30 * time.Second)}}

	var reported []string
	s := New(WithClock(clock.Now), WithErrorHandler(func(_ context.Context, job string, err error) {
		reported = append(reported, job+": "+err.Error())
	}))

	calls := 0
	s.wrap("flaky", nil, time.Minute, func(context.Context) error {
		calls++
		return errors.New("boom")
	})()

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"flaky: boom"}, reported)
}

func TestWrapNeverOverlaps(t *testing.T) {
	s := New()
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	var active, maxActive int
	var mu sync.Mutex

	run := s.wrap("slow", nil, 0, func(context.Context) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		started <- struct{}{}
		<-release
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run()
		}()
	}

	<-started
	release <- struct{}{}
	<-started
	release <- struct{}{}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}

func TestWrapDropsSlotFiredLateByCron(t *testing.T) {
	sched, err := cron.ParseStandard(CronSpec(models.PostSlot{Weekday: 1, Hour: 18}, "UTC"))
	require.NoError(t, err)

	// Tuesday 18:00 fired ten minutes late.
	fired := time.Date(2025, 6, 3, 18, 10, 0, 0, time.UTC)
	clock := &steppedClock{times: []time.Time{fired}}
	s := New(WithClock(clock.Now))

	ran := false
	s.wrap("publish_slot_0", sched, 5*time.Minute, func(context.Context) error {
		ran = true
		return nil
	})()
	assert.False(t, ran)
}

func TestWrapRunsSlotFiredOnTime(t *testing.T) {
	sched, err := cron.ParseStandard(CronSpec(models.PostSlot{Weekday: 1, Hour: 18}, "UTC"))
	require.NoError(t, err)

	fired := time.Date(2025, 6, 3, 18, 0, 2, 0, time.UTC)
	clock := &steppedClock{times: []time.Time{fired}}
	s := New(WithClock(clock.Now))

	ran := false
	s.wrap("publish_slot_0", sched, 5*time.Minute, func(context.Context) error {
		ran = true
		return nil
	})()
	assert.True(t, ran)
}

func TestWrapDropsIntervalRunAfterStall(t *testing.T) {
	start := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	clock := &steppedClock{times: []time.Time{start}}
	s := New(WithClock(clock.Now))

	runs := 0
	run := s.wrap("queue_check", cron.Every(time.Hour), time.Minute, func(context.Context) error {
		runs++
		return nil
	})

	run()
	require.Equal(t, 1, runs)

	clock.times = []time.Time{start.Add(time.Hour + 30*time.Second)}
	run()
	assert.Equal(t, 2, runs)

	// The process stalled for 20 minutes past the next planned run.
	clock.times = []time.Time{start.Add(2*time.Hour + 20*time.Minute)}
	run()
	assert.Equal(t, 2, runs)
}

func TestLastActivation(t *testing.T) {
	sched, err := cron.ParseStandard(CronSpec(models.PostSlot{Weekday: 1, Hour: 18}, "UTC"))
	require.NoError(t, err)

	tuesday := time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC)
	assert.True(t, tuesday.Equal(lastActivation(sched, tuesday.Add(3*time.Minute))))
	assert.True(t, tuesday.Equal(lastActivation(sched, tuesday)))
	assert.True(t, tuesday.AddDate(0, 0, -7).Equal(lastActivation(sched, tuesday.Add(-time.Second))))
}

func TestWeeklyRejectsBadTimezone(t *testing.T) {
	s := New()
	err := s.Weekly("publish", models.PostSlot{Weekday: 1, Hour: 18}, "Not/AZone", time.Minute, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestReplaceWeeklySwapsEntries(t *testing.T) {
	s := New()
	noop := func(context.Context) error { return nil }
	s.Every("queue_check", time.Hour, time.Minute, noop)

	require.NoError(t, s.ReplaceWeekly("publish", []models.PostSlot{{Weekday: 1, Hour: 18}, {Weekday: 4, Hour: 9}}, "UTC", time.Minute, noop))
	assert.Len(t, s.Jobs(), 3)

	require.NoError(t, s.ReplaceWeekly("publish", []models.PostSlot{{Weekday: 2, Hour: 7}}, "UTC", time.Minute, noop))
	jobs := s.Jobs()
	require.Len(t, jobs, 2)

	var names []string
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	assert.ElementsMatch(t, []string{"queue_check", "publish_0"}, names)
}

func TestRunExecutesJobsUntilCancelled(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 1)
	s.Every("tick", time.Second, 0, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

package scheduling

import (
	"testing"
	"time"
	_ "time/tzdata"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextScheduledTimeFollowingWeek(t *testing.T) {
	// Wednesday 2025-01-08 10:00 UTC.
	now := time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)
	got := NextScheduledTime(now, models.PostSlot{Weekday: 1, Hour: 18}, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 14, 18, 0, 0, 0, time.UTC), got)
}

func TestNextScheduledTimeSameDay(t *testing.T) {
	tuesday := models.PostSlot{Weekday: 1, Hour: 18}

	before := time.Date(2025, 1, 7, 17, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 7, 18, 0, 0, 0, time.UTC), NextScheduledTime(before, tuesday, time.UTC))

	exact := time.Date(2025, 1, 7, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 14, 18, 0, 0, 0, time.UTC), NextScheduledTime(exact, tuesday, time.UTC))

	after := time.Date(2025, 1, 7, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 14, 18, 0, 0, 0, time.UTC), NextScheduledTime(after, tuesday, time.UTC))
}

func TestNextScheduledTimeInZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	// 14:00 UTC on Tuesday is 17:00 in Istanbul.
	now := time.Date(2025, 1, 7, 14, 0, 0, 0, time.UTC)
	got := NextScheduledTime(now, models.PostSlot{Weekday: 1, Hour: 18}, loc)
	assert.Equal(t, time.Date(2025, 1, 7, 15, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestNextScheduledTimeProperties(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for step := 0; step < 24*21; step += 5 {
		now := start.Add(time.Duration(step) * time.Hour).Add(17 * time.Minute)
		for weekday := 0; weekday < 7; weekday++ {
			slot := models.PostSlot{Weekday: weekday, Hour: 9, Minute: 30}
			got := NextScheduledTime(now, slot, loc)

			require.True(t, got.After(now), "now=%s slot=%v got=%s", now, slot, got)
			require.LessOrEqual(t, got.Sub(now), 7*24*time.Hour+time.Hour)
			local := got.In(loc)
			require.Equal(t, weekday, Weekday(local.Weekday()))
			require.Equal(t, 9, local.Hour())
			require.Equal(t, 30, local.Minute())
		}
	}
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]int{"monday": 0, "Tue": 1, " sunday ": 6, "3": 3, "0": 0}
	for in, want := range cases {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"7", "-1", "someday", ""} {
		_, err := ParseWeekday(bad)
		assert.Error(t, err, bad)
	}
}

func TestSlotsFromConfigSorted(t *testing.T) {
	slots, err := SlotsFromConfig([]config.PostTime{
		{Day: "friday", Time: "09:00"},
		{Day: "tuesday", Time: "18:30"},
		{Day: "tuesday", Time: "08:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.PostSlot{
		{Weekday: 1, Hour: 8},
		{Weekday: 1, Hour: 18, Minute: 30},
		{Weekday: 4, Hour: 9},
	}, slots)

	_, err = SlotsFromConfig([]config.PostTime{{Day: "friday", Time: "25:00"}})
	assert.Error(t, err)
}

func TestNextFreeTimeSkipsTakenSlots(t *testing.T) {
	now := time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)
	slots := []models.PostSlot{{Weekday: 1, Hour: 18}, {Weekday: 4, Hour: 9}}

	got, ok := NextFreeTime(now, slots, time.UTC, nil, 4)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), got)

	taken := []time.Time{
		time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 14, 18, 0, 0, 0, time.UTC),
	}
	got, ok = NextFreeTime(now, slots, time.UTC, taken, 4)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 17, 9, 0, 0, 0, time.UTC), got)

	got, ok = NextFreeTime(now, slots[:1], time.UTC, taken[1:], 1)
	assert.False(t, ok)
	assert.Equal(t, time.Date(2025, 1, 14, 18, 0, 0, 0, time.UTC), got)
}

func TestParseLocal(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	got, err := ParseLocal("2025-02-03 18:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 3, 15, 0, 0, 0, time.UTC), got)

	_, err = ParseLocal("tomorrow", loc)
	assert.Error(t, err)
}

func TestCronSpecAndFormat(t *testing.T) {
	slot := models.PostSlot{Weekday: 1, Hour: 18, Minute: 5}
	assert.Equal(t, "CRON_TZ=UTC 5 18 * * 2", CronSpec(slot, "UTC"))
	assert.Equal(t, "CRON_TZ=UTC 0 9 * * 0", CronSpec(models.PostSlot{Weekday: 6, Hour: 9}, "UTC"))
	assert.Equal(t, "Tuesday 18:05", FormatSlot(slot))
}

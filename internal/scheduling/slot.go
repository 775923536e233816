package scheduling

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
)

const (
	DefaultTimezone = "Europe/Istanbul"
	DateTimeLayout  = "2006-01-02 15:04"
)

var weekdayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Weekday converts a time.Weekday to the Monday-based index used by slots.
func Weekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// ParseWeekday accepts a day name, a three-letter abbreviation or 0-6 with
// 0 = Monday.
func ParseWeekday(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday %d out of range 0-6", n)
		}
		return n, nil
	}
	for i, name := range weekdayNames {
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func ParseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

func ParseSlot(day, clock string) (models.PostSlot, error) {
	weekday, err := ParseWeekday(day)
	if err != nil {
		return models.PostSlot{}, err
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return models.PostSlot{}, err
	}
	return models.PostSlot{Weekday: weekday, Hour: hour, Minute: minute}, nil
}

// SlotsFromConfig parses and sorts the post_times of the content config.
func SlotsFromConfig(times []config.PostTime) ([]models.PostSlot, error) {
	slots := make([]models.PostSlot, 0, len(times))
	for _, pt := range times {
		slot, err := ParseSlot(pt.Day, pt.Time)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	SortSlots(slots)
	return slots, nil
}

func SortSlots(slots []models.PostSlot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.Minute < b.Minute
	})
}

func ValidateSlot(s models.PostSlot) error {
	if s.Weekday < 0 || s.Weekday > 6 {
		return fmt.Errorf("weekday %d out of range 0-6", s.Weekday)
	}
	if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("invalid slot time %02d:%02d", s.Hour, s.Minute)
	}
	return nil
}

func FormatSlot(s models.PostSlot) string {
	name := weekdayNames[s.Weekday]
	return fmt.Sprintf("%s %02d:%02d", strings.ToUpper(name[:1])+name[1:], s.Hour, s.Minute)
}

func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	return time.LoadLocation(name)
}

// NextScheduledTime returns the first instant strictly after now that falls
// on slot in loc, expressed in UTC.
func NextScheduledTime(now time.Time, slot models.PostSlot, loc *time.Location) time.Time {
	local := now.In(loc)
	days := (slot.Weekday - Weekday(local.Weekday()) + 7) % 7
	candidate := time.Date(local.Year(), local.Month(), local.Day()+days, slot.Hour, slot.Minute, 0, 0, loc)
	if !candidate.After(now) {
		candidate = time.Date(local.Year(), local.Month(), local.Day()+days+7, slot.Hour, slot.Minute, 0, 0, loc)
	}
	return candidate.UTC()
}

// NextFreeTime returns the earliest slot occurrence after now that is not
// already in taken, looking up to weeks weeks ahead. When every occurrence
// is taken it returns the earliest occurrence and false.
func NextFreeTime(now time.Time, slots []models.PostSlot, loc *time.Location, taken []time.Time, weeks int) (time.Time, bool) {
	used := make(map[int64]bool, len(taken))
	for _, t := range taken {
		used[t.Unix()] = true
	}

	var earliest time.Time
	for week := 0; week < weeks; week++ {
		var candidates []time.Time
		for _, slot := range slots {
			next := NextScheduledTime(now, slot, loc)
			candidates = append(candidates, next.In(loc).AddDate(0, 0, 7*week).UTC())
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })

		for _, c := range candidates {
			if earliest.IsZero() {
				earliest = c
			}
			if !used[c.Unix()] {
				return c, true
			}
		}
	}
	return earliest, false
}

// ParseLocal parses "YYYY-MM-DD HH:MM" in loc and returns it in UTC.
func ParseLocal(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q, expected YYYY-MM-DD HH:MM", value)
	}
	return t.UTC(), nil
}

// CronSpec renders slot as a cron expression evaluated in tz.
func CronSpec(slot models.PostSlot, tz string) string {
	return fmt.Sprintf("CRON_TZ=%s %d %d * * %d", tz, slot.Minute, slot.Hour, (slot.Weekday+1)%7)
}

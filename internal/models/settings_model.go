package models

import "time"

// ScheduleSettings is the single row holding the weekly publishing slots.
type ScheduleSettings struct {
	ID        int64      `db:"id" json:"id"`
	Timezone  string     `db:"timezone" json:"timezone"`
	Slots     []PostSlot `db:"slots" json:"slots"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// PostSlot is a weekday (0 = Monday) and a local wall-clock time.
type PostSlot struct {
	Weekday int `json:"weekday"`
	Hour    int `json:"hour"`
	Minute  int `json:"minute"`
}

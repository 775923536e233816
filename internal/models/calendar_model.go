package models

import "time"

type CalendarEntry struct {
	ID        int64     `db:"id" json:"id"`
	EntryDate time.Time `db:"entry_date" json:"entry_date"`
	TimeSlot  string    `db:"time_slot" json:"time_slot"` // HH:MM
	Theme     string    `db:"theme" json:"theme"`
	ReelID    *int64    `db:"reel_id" json:"reel_id,omitempty"`
	Status    string    `db:"status" json:"status"` // pending, approved, published, skipped
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CalendarDay groups the scheduled posts of one local date.
type CalendarDay struct {
	Date  string         `json:"date"`
	Items []CalendarItem `json:"items"`
}

type CalendarItem struct {
	ScheduledPostID int64     `json:"scheduled_post_id"`
	ReelID          int64     `json:"reel_id"`
	ScheduledTime   time.Time `json:"scheduled_time"`
	Status          string    `json:"status"`
	Theme           string    `json:"theme"`
	Caption         string    `json:"caption"`
	QualityScore    float64   `json:"quality_score"`
	QuoteText       string    `json:"quote_text"`
}

const (
	CalendarStatusPending   = "pending"
	CalendarStatusApproved  = "approved"
	CalendarStatusPublished = "published"
	CalendarStatusSkipped   = "skipped"
)

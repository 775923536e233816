package models

import "time"

type ScheduledPost struct {
	ID            int64      `db:"id" json:"id"`
	ReelID        int64      `db:"reel_id" json:"reel_id"`
	ScheduledTime time.Time  `db:"scheduled_time" json:"scheduled_time"`
	Status        string     `db:"status" json:"status"` // pending, published, failed, cancelled
	RetryCount    int        `db:"retry_count" json:"retry_count"`
	ErrorMessage  string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	PublishedAt   *time.Time `db:"published_at" json:"published_at,omitempty"`
}

const (
	PostStatusPending   = "pending"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
	PostStatusCancelled = "cancelled"
)

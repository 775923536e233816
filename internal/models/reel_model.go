package models

import "time"

type GeneratedReel struct {
	ID           int64      `db:"id" json:"id"`
	VideoID      int64      `db:"video_id" json:"video_id"`
	MusicID      int64      `db:"music_id" json:"music_id"`
	QuoteID      int64      `db:"quote_id" json:"quote_id"`
	OutputPath   string     `db:"output_path" json:"output_path"`
	Caption      string     `db:"caption" json:"caption"`
	Theme        string     `db:"theme" json:"theme"`
	Duration     float64    `db:"duration" json:"duration"`
	FileSize     int64      `db:"file_size" json:"file_size"`
	QualityScore float64    `db:"quality_score" json:"quality_score"`
	Status       string     `db:"status" json:"status"` // pending, approved, rejected, published
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ApprovedAt   *time.Time `db:"approved_at" json:"approved_at,omitempty"`
}

// ReelDetail is a reel joined with its assets and, when present, its
// scheduled post.
type ReelDetail struct {
	Reel          GeneratedReel  `json:"reel"`
	VideoFilename string         `json:"video_filename"`
	MusicFilename string         `json:"music_filename"`
	QuoteText     string         `json:"quote_text"`
	QuoteAuthor   string         `json:"quote_author"`
	Scheduled     *ScheduledPost `json:"scheduled,omitempty"`
}

const (
	ReelStatusPending   = "pending"
	ReelStatusApproved  = "approved"
	ReelStatusRejected  = "rejected"
	ReelStatusPublished = "published"
)

package models

import "time"

type PublishedPost struct {
	ID          int64     `db:"id" json:"id"`
	ReelID      int64     `db:"reel_id" json:"reel_id"`
	Platform    string    `db:"platform" json:"platform"`
	ExternalID  string    `db:"external_id" json:"external_id"`
	URL         string    `db:"url" json:"url"`
	Caption     string    `db:"caption" json:"caption"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
}

type PostMetrics struct {
	ID              int64     `db:"id" json:"id"`
	PublishedPostID int64     `db:"published_post_id" json:"published_post_id"`
	Likes           int       `db:"likes" json:"likes"`
	Comments        int       `db:"comments" json:"comments"`
	Shares          int       `db:"shares" json:"shares"`
	Reach           int       `db:"reach" json:"reach"`
	Saves           int       `db:"saves" json:"saves"`
	EngagementRate  float64   `db:"engagement_rate" json:"engagement_rate"`
	CollectedAt     time.Time `db:"collected_at" json:"collected_at"`
}

// QueueStatus counts reels per lifecycle state plus pending scheduled posts.
type QueueStatus struct {
	Pending        int `json:"pending"`
	Approved       int `json:"approved"`
	Rejected       int `json:"rejected"`
	Published      int `json:"published"`
	ScheduledPosts int `json:"scheduled_posts"`
	Target         int `json:"target"`
}

// PostPerformance is a published post with its most recent metrics
// snapshot. Metrics is nil until a snapshot has been collected.
type PostPerformance struct {
	ReelID      int64        `json:"reel_id"`
	Platform    string       `json:"platform"`
	URL         string       `json:"url"`
	Caption     string       `json:"caption"`
	Theme       string       `json:"theme"`
	PublishedAt time.Time    `json:"published_at"`
	Metrics     *PostMetrics `json:"metrics,omitempty"`
}

type AnalyticsReport struct {
	Since         time.Time          `json:"since"`
	Posts         int                `json:"posts"`
	Measured      int                `json:"measured"`
	Likes         int                `json:"likes"`
	Comments      int                `json:"comments"`
	Shares        int                `json:"shares"`
	Saves         int                `json:"saves"`
	Reach         int                `json:"reach"`
	AvgEngagement float64            `json:"avg_engagement"`
	BestTheme     string             `json:"best_theme,omitempty"`
	Top           []*PostPerformance `json:"top"`
}

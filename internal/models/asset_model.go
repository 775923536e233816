package models

import "time"

type Video struct {
	ID           int64      `db:"id" json:"id"`
	Filename     string     `db:"filename" json:"filename"`
	Source       string     `db:"source" json:"source"`
	URL          string     `db:"url" json:"url"`
	Duration     float64    `db:"duration" json:"duration"`
	Resolution   string     `db:"resolution" json:"resolution"`
	Tags         string     `db:"tags" json:"tags"`
	Theme        string     `db:"theme" json:"theme"`
	UsageCount   int        `db:"usage_count" json:"usage_count"`
	QualityScore float64    `db:"quality_score" json:"quality_score"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt   *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}

type Music struct {
	ID          int64      `db:"id" json:"id"`
	Filename    string     `db:"filename" json:"filename"`
	Source      string     `db:"source" json:"source"`
	URL         string     `db:"url" json:"url"`
	Duration    float64    `db:"duration" json:"duration"`
	BPM         int        `db:"bpm" json:"bpm"`
	Tags        string     `db:"tags" json:"tags"`
	BassScore   float64    `db:"bass_score" json:"bass_score"`
	EnergyLevel string     `db:"energy_level" json:"energy_level"` // low, medium, high
	UsageCount  int        `db:"usage_count" json:"usage_count"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt  *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}

type Quote struct {
	ID         int64      `db:"id" json:"id"`
	Text       string     `db:"text" json:"text"`
	Author     string     `db:"author" json:"author"`
	Category   string     `db:"category" json:"category"`
	Length     int        `db:"length" json:"length"`
	UsageCount int        `db:"usage_count" json:"usage_count"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}

func (v *Video) Usage() (int, *time.Time) { return v.UsageCount, v.LastUsedAt }
func (m *Music) Usage() (int, *time.Time) { return m.UsageCount, m.LastUsedAt }
func (q *Quote) Usage() (int, *time.Time) { return q.UsageCount, q.LastUsedAt }

const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"
)

package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Content holds the pipeline settings read from the YAML content file.
type Content struct {
	Content    ContentSettings `yaml:"content"`
	Automation Automation      `yaml:"automation"`
	Scheduling Scheduling      `yaml:"scheduling"`
}

type Theme struct {
	MusicEnergy string   `yaml:"music_energy"`
	Keywords    []string `yaml:"keywords"`
}

type ContentSettings struct {
	Themes            map[string]Theme `yaml:"themes"`
	QueueTarget       int              `yaml:"queue_target"`
	QualityThreshold  float64          `yaml:"quality_threshold"`
	MaxQuoteLength    int              `yaml:"max_quote_length"`
	BassThreshold     float64          `yaml:"bass_threshold"`
	ThemeRotation     bool             `yaml:"theme_rotation"`
	MaxPublishRetries int              `yaml:"max_publish_retries"`
	MinFileSize       int64            `yaml:"min_file_size"`
	MaxFileSize       int64            `yaml:"max_file_size"`
}

type Automation struct {
	GenerateInterval      time.Duration `yaml:"generate_interval"`
	MetricsInterval       time.Duration `yaml:"metrics_interval"`
	QueueCheckInterval    time.Duration `yaml:"queue_check_interval"`
	CalendarCheckInterval time.Duration `yaml:"calendar_check_interval"`
	PublishCheckInterval  time.Duration `yaml:"publish_check_interval"`
	MisfireGrace          time.Duration `yaml:"misfire_grace"`
	PublishGrace          time.Duration `yaml:"publish_grace"`
	MinPendingReels       int           `yaml:"min_pending_reels"`
}

type Scheduling struct {
	Timezone  string     `yaml:"timezone"`
	PostTimes []PostTime `yaml:"post_times"`
}

// PostTime is a weekday name (or 0-6 with 0 = Monday) and an HH:MM time.
type PostTime struct {
	Day  string `yaml:"day"`
	Time string `yaml:"time"`
}

func DefaultContent() *Content {
	return &Content{
		Content: ContentSettings{
			QueueTarget:       7,
			QualityThreshold:  0.75,
			MaxQuoteLength:    100,
			BassThreshold:     0.10,
			ThemeRotation:     true,
			MaxPublishRetries: 5,
			MinFileSize:       100 * 1024,
			MaxFileSize:       100 * 1024 * 1024,
		},
		Automation: Automation{
			GenerateInterval:      6 * time.Hour,
			MetricsInterval:       3 * time.Hour,
			QueueCheckInterval:    time.Hour,
			CalendarCheckInterval: 5 * time.Minute,
			PublishCheckInterval:  5 * time.Minute,
			MisfireGrace:          60 * time.Second,
			PublishGrace:          300 * time.Second,
			MinPendingReels:       3,
		},
		Scheduling: Scheduling{
			Timezone: "Europe/Istanbul",
		},
	}
}

// LoadContent reads the YAML content file at path on top of the defaults.
// ${VAR} references are expanded from the environment. A missing file
// yields the defaults.
func LoadContent(path string) (*Content, error) {
	c := DefaultContent()
	if path == "" {
		return c, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read content config: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), c); err != nil {
		return nil, fmt.Errorf("parse content config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Content) Validate() error {
	if c.Content.QualityThreshold < 0 || c.Content.QualityThreshold > 1 {
		return fmt.Errorf("quality_threshold must be within [0,1], got %v", c.Content.QualityThreshold)
	}
	if c.Content.QueueTarget < 0 {
		return fmt.Errorf("queue_target must not be negative")
	}
	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Scheduling.Timezone, err)
	}
	for name, interval := range map[string]time.Duration{
		"generate_interval":       c.Automation.GenerateInterval,
		"metrics_interval":        c.Automation.MetricsInterval,
		"queue_check_interval":    c.Automation.QueueCheckInterval,
		"calendar_check_interval": c.Automation.CalendarCheckInterval,
		"publish_check_interval":  c.Automation.PublishCheckInterval,
	} {
		if interval <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// EnergyFor returns the configured music energy for theme and whether the
// theme is configured at all.
func (c *Content) EnergyFor(theme string) (string, bool) {
	t, ok := c.Content.Themes[theme]
	if !ok {
		return "", false
	}
	if t.MusicEnergy == "" {
		return "medium", true
	}
	return t.MusicEnergy, true
}

func (c *Content) ThemeNames() []string {
	names := make([]string, 0, len(c.Content.Themes))
	for name := range c.Content.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

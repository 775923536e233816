package service

import (
	"context"
	"fmt"
	"strings"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
)

const (
	PlatformInstagram = "instagram"
	PlatformYoutube   = "youtube"
)

type PublishRequest struct {
	ReelID    int64
	VideoPath string
	Caption   string
}

type PublishResult struct {
	Platform   string
	ExternalID string
	URL        string
}

type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}

// MetricsSource is implemented by publishers that can report engagement
// for a post they published.
type MetricsSource interface {
	Metrics(ctx context.Context, externalID string) (*models.PostMetrics, error)
}

// NewPublisher returns the publisher for cfg.PublishPlatform.
func NewPublisher(cfg config.Config, store ObjectStore) (Publisher, error) {
	switch strings.ToLower(cfg.PublishPlatform) {
	case "", PlatformInstagram:
		if cfg.Instagram.UserID == "" || cfg.Instagram.AccessToken == "" {
			return unconfiguredPublisher{platform: PlatformInstagram}, nil
		}
		return NewInstagramService(cfg.Instagram, store, nil), nil
	case PlatformYoutube:
		if cfg.GoogleClientID == "" || cfg.YoutubeRefresh == "" {
			return unconfiguredPublisher{platform: PlatformYoutube}, nil
		}
		return NewYoutubeService(cfg), nil
	default:
		return nil, fmt.Errorf("unknown publish platform %q", cfg.PublishPlatform)
	}
}

type unconfiguredPublisher struct {
	platform string
}

func (p unconfiguredPublisher) Publish(context.Context, PublishRequest) (*PublishResult, error) {
	return nil, fmt.Errorf("%w: missing %s credentials", ErrNotConfigured, p.platform)
}

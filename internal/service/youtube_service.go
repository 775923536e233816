package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const maxShortsTitle = 90

type YoutubeService interface {
	Publisher
	MetricsSource
}

type youtubeService struct {
	cfg  config.Config
	opts []option.ClientOption
}

// NewYoutubeService publishes Shorts with an offline refresh token. Extra
// client options are applied after the OAuth client.
func NewYoutubeService(cfg config.Config, opts ...option.ClientOption) YoutubeService {
	return &youtubeService{cfg: cfg, opts: opts}
}

func (s *youtubeService) service(ctx context.Context) (*youtube.Service, error) {
	conf := &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: s.cfg.YoutubeRefresh})

	opts := append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource))}, s.opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating YouTube service: %w", err)
	}
	return service, nil
}

func (s *youtubeService) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	service, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(req.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("error opening video file: %w", err)
	}
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       ShortsTitle(req.Caption),
			Description: req.Caption,
			CategoryId:  "22",
			Tags:        hashtags(req.Caption),
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
		},
	}

	response, err := service.Videos.Insert([]string{"snippet", "status"}, video).Media(file).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("error uploading video: %w", err)
	}

	return &PublishResult{
		Platform:   PlatformYoutube,
		ExternalID: response.Id,
		URL:        "https://youtube.com/shorts/" + response.Id,
	}, nil
}

func (s *youtubeService) Metrics(ctx context.Context, videoID string) (*models.PostMetrics, error) {
	service, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := service.Videos.List([]string{"statistics"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch video statistics: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	stats := resp.Items[0].Statistics
	m := &models.PostMetrics{
		Likes:    int(stats.LikeCount),
		Comments: int(stats.CommentCount),
		Reach:    int(stats.ViewCount),
	}
	if m.Reach > 0 {
		m.EngagementRate = float64(m.Likes+m.Comments) / float64(m.Reach)
	}
	return m, nil
}

// ShortsTitle derives a video title from the first caption line without
// hashtags, trimmed to fit and tagged #Shorts.
func ShortsTitle(caption string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(caption), "\n")

	var words []string
	for _, w := range strings.Fields(line) {
		if !strings.HasPrefix(w, "#") {
			words = append(words, w)
		}
	}
	title := strings.Join(words, " ")

	if utf8.RuneCountInString(title) > maxShortsTitle {
		title = strings.TrimSpace(string([]rune(title)[:maxShortsTitle-3])) + "..."
	}
	if title == "" {
		return "#Shorts"
	}
	return title + " #Shorts"
}

func hashtags(caption string) []string {
	var tags []string
	for _, w := range strings.Fields(caption) {
		if tag := strings.TrimPrefix(w, "#"); tag != w && tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
)

type InstagramService interface {
	Publisher
	MetricsSource
}

type instagramService struct {
	cfg    config.Instagram
	store  ObjectStore
	client *http.Client
}

func NewInstagramService(cfg config.Instagram, store ObjectStore, client *http.Client) InstagramService {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 60
	}
	return &instagramService{
		cfg:    cfg,
		store:  store,
		client: client,
	}
}

// Publish uploads the reel to object storage, creates a REELS media
// container from the signed URL, waits for Instagram to process it and
// publishes the container.
func (ig *instagramService) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if ig.store == nil {
		return nil, errors.New("instagram publishing needs object storage for the video url")
	}

	key, err := ig.store.UploadFile(ctx, req.VideoPath, "video/mp4")
	if err != nil {
		return nil, fmt.Errorf("upload reel: %w", err)
	}
	defer func() {
		if err := ig.store.Delete(context.WithoutCancel(ctx), key); err != nil {
			slog.Warn("could not remove uploaded reel", "key", key, "error", err)
		}
	}()

	videoURL, err := ig.store.PresignGet(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("sign reel url: %w", err)
	}

	creationID, err := ig.createContainer(ctx, videoURL, req.Caption)
	if err != nil {
		return nil, err
	}

	if err := ig.waitForContainer(ctx, creationID); err != nil {
		return nil, err
	}

	mediaID, err := ig.publishContainer(ctx, creationID)
	if err != nil {
		return nil, err
	}

	result := &PublishResult{Platform: PlatformInstagram, ExternalID: mediaID}

	var media struct {
		Permalink string `json:"permalink"`
	}
	if err := ig.graph(ctx, http.MethodGet, mediaID, url.Values{"fields": {"permalink"}}, &media); err != nil {
		slog.Warn("could not fetch permalink", "media_id", mediaID, "error", err)
	}
	result.URL = media.Permalink

	return result, nil
}

func (ig *instagramService) createContainer(ctx context.Context, videoURL, caption string) (string, error) {
	params := url.Values{}
	params.Set("media_type", "REELS")
	params.Set("video_url", videoURL)
	params.Set("caption", caption)
	params.Set("share_to_feed", "true")

	var result struct {
		ID string `json:"id"`
	}
	if err := ig.graph(ctx, http.MethodPost, ig.cfg.UserID+"/media", params, &result); err != nil {
		return "", fmt.Errorf("create media container: %w", err)
	}
	if result.ID == "" {
		return "", errors.New("no container id returned from Instagram")
	}
	return result.ID, nil
}

func (ig *instagramService) waitForContainer(ctx context.Context, creationID string) error {
	ticker := time.NewTicker(ig.cfg.PollInterval)
	defer ticker.Stop()

	for i := 0; i < ig.cfg.MaxPolls; i++ {
		var status struct {
			StatusCode string `json:"status_code"`
			Status     string `json:"status"`
		}
		if err := ig.graph(ctx, http.MethodGet, creationID, url.Values{"fields": {"status_code,status"}}, &status); err != nil {
			return fmt.Errorf("check container status: %w", err)
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("container %s failed: %s %s", creationID, status.StatusCode, status.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return fmt.Errorf("container %s not ready after %d checks", creationID, ig.cfg.MaxPolls)
}

func (ig *instagramService) publishContainer(ctx context.Context, creationID string) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	if err := ig.graph(ctx, http.MethodPost, ig.cfg.UserID+"/media_publish", url.Values{"creation_id": {creationID}}, &result); err != nil {
		return "", fmt.Errorf("publish container: %w", err)
	}
	if result.ID == "" {
		return "", errors.New("no media id returned from Instagram")
	}
	return result.ID, nil
}

func (ig *instagramService) Metrics(ctx context.Context, mediaID string) (*models.PostMetrics, error) {
	var counts struct {
		LikeCount     int `json:"like_count"`
		CommentsCount int `json:"comments_count"`
	}
	if err := ig.graph(ctx, http.MethodGet, mediaID, url.Values{"fields": {"like_count,comments_count"}}, &counts); err != nil {
		return nil, fmt.Errorf("fetch media counts: %w", err)
	}

	m := &models.PostMetrics{
		Likes:    counts.LikeCount,
		Comments: counts.CommentsCount,
	}

	var insights struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	err := ig.graph(ctx, http.MethodGet, mediaID+"/insights", url.Values{"metric": {"reach,saved,shares"}}, &insights)
	if err != nil {
		slog.Warn("insights unavailable", "media_id", mediaID, "error", err)
	}
	for _, d := range insights.Data {
		if len(d.Values) == 0 {
			continue
		}
		switch d.Name {
		case "reach":
			m.Reach = d.Values[0].Value
		case "saved":
			m.Saves = d.Values[0].Value
		case "shares":
			m.Shares = d.Values[0].Value
		}
	}

	if m.Reach > 0 {
		m.EngagementRate = float64(m.Likes+m.Comments+m.Saves+m.Shares) / float64(m.Reach)
	}
	return m, nil
}

func (ig *instagramService) graph(ctx context.Context, method, path string, params url.Values, out any) error {
	params.Set("access_token", ig.cfg.AccessToken)
	endpoint := strings.TrimRight(ig.cfg.GraphURL, "/") + "/" + path

	var body io.Reader
	if method == http.MethodGet {
		endpoint += "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := ig.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("instagram error %d: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("unexpected status code from Instagram: %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/quality"
)

const (
	SourcePexels     = "pexels"
	SourceDownloaded = "downloaded"

	// Used when the source does not report a duration.
	defaultDownloadDuration = 30
)

type DownloadedAsset struct {
	Filename   string
	Source     string
	URL        string
	Duration   float64
	Resolution string
}

// AssetDownloader fetches new stock footage and music for a generated idea.
// Files land in the asset directories under the returned filename.
type AssetDownloader interface {
	DownloadVideo(ctx context.Context, terms []string) (*DownloadedAsset, error)
	DownloadMusic(ctx context.Context, terms []string) (*DownloadedAsset, error)
}

type stockDownloader struct {
	pexelsKey    string
	pexelsURL    string
	musicCommand []string
	videoDir     string
	musicDir     string
	client       *http.Client
}

// NewAssetDownloader returns nil unless both a Pexels key and a music
// download command are configured.
func NewAssetDownloader(cfg config.Config, client *http.Client) AssetDownloader {
	if cfg.PexelsKey == "" || strings.TrimSpace(cfg.MusicCommand) == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &stockDownloader{
		pexelsKey:    cfg.PexelsKey,
		pexelsURL:    strings.TrimRight(cfg.PexelsURL, "/"),
		musicCommand: strings.Fields(cfg.MusicCommand),
		videoDir:     cfg.VideoDir,
		musicDir:     cfg.MusicDir,
		client:       client,
	}
}

type pexelsVideo struct {
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	Duration   int    `json:"duration"`
	VideoFiles []struct {
		Link   string `json:"link"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"video_files"`
}

func (d *stockDownloader) DownloadVideo(ctx context.Context, terms []string) (*DownloadedAsset, error) {
	for _, term := range terms {
		asset, err := d.downloadVideo(ctx, term)
		if err == nil {
			return asset, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("video download failed", "term", term, "error", err)
	}
	return nil, errors.New("no video found for any search term")
}

func (d *stockDownloader) downloadVideo(ctx context.Context, term string) (*DownloadedAsset, error) {
	params := url.Values{}
	params.Set("query", term)
	params.Set("orientation", "portrait")
	params.Set("size", "large")
	params.Set("per_page", "20")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.pexelsURL+"/videos/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", d.pexelsKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code from Pexels: %d", resp.StatusCode)
	}

	var result struct {
		Videos []pexelsVideo `json:"videos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if len(result.Videos) == 0 {
		return nil, fmt.Errorf("no videos for %q", term)
	}

	video := pickVideo(result.Videos)
	link, width, height := portraitFile(video)
	if link == "" {
		return nil, fmt.Errorf("pexels video %d has no files", video.ID)
	}

	filename := fmt.Sprintf("pexels_%d.mp4", video.ID)
	path := filepath.Join(d.videoDir, filename)
	if _, err := os.Stat(path); err != nil {
		if err := d.fetch(ctx, link, path); err != nil {
			return nil, err
		}
	}

	ok, err := quality.IsVideoFile(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		os.Remove(path)
		return nil, fmt.Errorf("pexels video %d is not a video file", video.ID)
	}

	duration := float64(video.Duration)
	if duration <= 0 {
		duration = defaultDownloadDuration
	}
	return &DownloadedAsset{
		Filename:   filename,
		Source:     SourcePexels,
		URL:        video.URL,
		Duration:   duration,
		Resolution: fmt.Sprintf("%dx%d", width, height),
	}, nil
}

// pickVideo skips the top ranked results when there are plenty, so the
// same few clips do not keep coming back.
func pickVideo(videos []pexelsVideo) pexelsVideo {
	candidates := videos
	switch {
	case len(videos) > 15:
		candidates = videos[5:15]
	case len(videos) > 5:
		candidates = videos[:10]
	}
	return candidates[rand.IntN(len(candidates))]
}

// portraitFile prefers a 1080p+ vertical rendition, then 720p+ vertical,
// then whatever comes first.
func portraitFile(v pexelsVideo) (string, int, int) {
	best := -1
	for i, f := range v.VideoFiles {
		if f.Width >= f.Height {
			continue
		}
		if f.Height >= 1080 {
			return f.Link, f.Width, f.Height
		}
		if f.Height >= 720 && best < 0 {
			best = i
		}
	}
	if best < 0 && len(v.VideoFiles) > 0 {
		best = 0
	}
	if best < 0 {
		return "", 0, 0
	}
	f := v.VideoFiles[best]
	return f.Link, f.Width, f.Height
}

func (d *stockDownloader) fetch(ctx context.Context, link, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", link, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", link, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// DownloadMusic runs the music command as `<command> <query> <output>` for
// each term until one writes the output file.
func (d *stockDownloader) DownloadMusic(ctx context.Context, terms []string) (*DownloadedAsset, error) {
	for _, term := range terms {
		filename := "music_" + safeName(term) + ".mp3"
		path := filepath.Join(d.musicDir, filename)
		if _, err := os.Stat(path); err == nil {
			return &DownloadedAsset{Filename: filename, Source: SourceDownloaded, Duration: defaultDownloadDuration}, nil
		}
		if err := os.MkdirAll(d.musicDir, 0o755); err != nil {
			return nil, err
		}

		args := append(append([]string{}, d.musicCommand[1:]...), term, path)
		out, err := exec.CommandContext(ctx, d.musicCommand[0], args...).CombinedOutput()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("music download failed", "term", term, "error", err, "output", strings.TrimSpace(string(out)))
			continue
		}
		if _, err := os.Stat(path); err != nil {
			slog.Warn("music command wrote no file", "term", term, "path", path)
			continue
		}
		return &DownloadedAsset{Filename: filename, Source: SourceDownloaded, Duration: defaultDownloadDuration}, nil
	}
	return nil, errors.New("no music found for any search term")
}

func safeName(term string) string {
	name := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(strings.ToLower(strings.TrimSpace(term)))
	if r := []rune(name); len(r) > 30 {
		name = string(r[:30])
	}
	return name
}

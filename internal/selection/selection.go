// Package selection picks video, music and quote assets for a reel using
// usage-weighted random draws.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
)

const (
	MaxAttempts    = 5
	LeastUsedLimit = 50
	RecencyWindow  = 7 * 24 * time.Hour
	RecencyFactor  = 0.2
	MinWeight      = 0.1
	DurationSlack  = 1.2
	DefaultTheme   = "general"
)

// ErrSelectionExhausted is returned when no valid combination was found
// within MaxAttempts. Callers treat it as a skippable condition.
var ErrSelectionExhausted = errors.New("no valid content combination found")

// Asset is anything carrying usage statistics.
type Asset interface {
	Usage() (count int, lastUsed *time.Time)
}

type VideoSource interface {
	List(ctx context.Context) ([]*models.Video, error)
	LeastUsed(ctx context.Context, theme string, limit int) ([]*models.Video, error)
	IncrementUsage(ctx context.Context, id int64, usedAt time.Time) error
}

type MusicSource interface {
	List(ctx context.Context) ([]*models.Music, error)
	ByEnergy(ctx context.Context, energy string) ([]*models.Music, error)
	BassHeavy(ctx context.Context, minScore float64) ([]*models.Music, error)
	IncrementUsage(ctx context.Context, id int64, usedAt time.Time) error
}

type QuoteSource interface {
	List(ctx context.Context) ([]*models.Quote, error)
	ByCategory(ctx context.Context, category string) ([]*models.Quote, error)
	Short(ctx context.Context, maxLength int) ([]*models.Quote, error)
	IncrementUsage(ctx context.Context, id int64, usedAt time.Time) error
}

// Combination is one candidate set of assets for a single generation attempt.
type Combination struct {
	Video *models.Video
	Music *models.Music
	Quote *models.Quote
	Theme string
}

func (c *Combination) String() string {
	var quoteID int64
	if c.Quote != nil {
		quoteID = c.Quote.ID
	}
	return fmt.Sprintf("%s: video=%s music=%s quote=%d", c.Theme, c.Video.Filename, c.Music.Filename, quoteID)
}

type Engine struct {
	videos  VideoSource
	music   MusicSource
	quotes  QuoteSource
	content *config.Content
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Engine)

func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(videos VideoSource, music MusicSource, quotes QuoteSource, content *config.Content, opts ...Option) *Engine {
	e := &Engine{
		videos:  videos,
		music:   music,
		quotes:  quotes,
		content: content,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.content == nil {
		e.content = config.DefaultContent()
	}
	return e
}

// CalculateWeight favours rarely and not recently used assets:
// 1/(1+usage), scaled by RecencyFactor when used within RecencyWindow,
// never below MinWeight.
func CalculateWeight(asset Asset, now time.Time) float64 {
	count, lastUsed := asset.Usage()
	if count < 0 {
		count = 0
	}
	weight := 1.0 / (1.0 + float64(count))
	if lastUsed != nil && now.Sub(*lastUsed) < RecencyWindow {
		weight *= RecencyFactor
	}
	return math.Max(weight, MinWeight)
}

// SelectByWeightedRandom draws one element of pool with probability
// proportional to its weight. Degenerate weights fall back to a uniform
// draw. The boolean is false only for an empty pool.
func SelectByWeightedRandom[T Asset](rng *rand.Rand, now time.Time, pool []T) (T, bool) {
	var zero T
	if len(pool) == 0 {
		return zero, false
	}

	weights := make([]float64, len(pool))
	var total float64
	for i, asset := range pool {
		weights[i] = CalculateWeight(asset, now)
		total += weights[i]
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return pool[rng.IntN(len(pool))], true
	}

	target := rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return pool[i], true
		}
	}
	return pool[len(pool)-1], true
}

func (e *Engine) CalculateWeight(asset Asset) float64 {
	return CalculateWeight(asset, e.now())
}

// FindMatchingCombination draws up to MaxAttempts independent combinations
// and returns the first valid one. Store failures abort immediately.
func (e *Engine) FindMatchingCombination(ctx context.Context, theme string) (*Combination, error) {
	energy, configured := e.content.EnergyFor(theme)
	if theme != "" && !configured {
		slog.Warn("theme not configured, music falls back to bass-heavy tracks", "theme", theme)
	}

	resolved := theme
	if resolved == "" {
		resolved = DefaultTheme
	}

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		video, err := e.selectVideo(ctx, theme)
		if err != nil {
			return nil, fmt.Errorf("select video: %w", err)
		}
		music, err := e.selectMusic(ctx, energy)
		if err != nil {
			return nil, fmt.Errorf("select music: %w", err)
		}
		quote, err := e.selectQuote(ctx, theme)
		if err != nil {
			return nil, fmt.Errorf("select quote: %w", err)
		}

		if IsValidCombination(video, music, quote) {
			combo := &Combination{Video: video, Music: music, Quote: quote, Theme: resolved}
			slog.Info("found content combination", "attempt", attempt, "combination", combo.String())
			return combo, nil
		}
		slog.Debug("rejected content combination", "attempt", attempt, "theme", resolved)
	}

	return nil, ErrSelectionExhausted
}

// IsValidCombination requires all three assets and a video no longer than
// DurationSlack times the music.
func IsValidCombination(video *models.Video, music *models.Music, quote *models.Quote) bool {
	if video == nil || music == nil || quote == nil {
		return false
	}
	return video.Duration <= music.Duration*DurationSlack
}

func (e *Engine) selectVideo(ctx context.Context, theme string) (*models.Video, error) {
	var pool []*models.Video
	var err error
	if theme != "" {
		pool, err = e.videos.LeastUsed(ctx, theme, LeastUsedLimit)
	} else {
		pool, err = e.videos.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	video, _ := SelectByWeightedRandom(e.rng, e.now(), pool)
	e.mu.Unlock()
	return video, nil
}

func (e *Engine) selectMusic(ctx context.Context, energy string) (*models.Music, error) {
	var pool []*models.Music
	var err error
	if energy != "" {
		pool, err = e.music.ByEnergy(ctx, energy)
	} else {
		pool, err = e.music.BassHeavy(ctx, e.content.Content.BassThreshold)
		if err == nil && len(pool) == 0 {
			pool, err = e.music.List(ctx)
		}
	}
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	track, _ := SelectByWeightedRandom(e.rng, e.now(), pool)
	e.mu.Unlock()
	return track, nil
}

func (e *Engine) selectQuote(ctx context.Context, theme string) (*models.Quote, error) {
	var pool []*models.Quote
	var err error
	if theme != "" {
		pool, err = e.quotes.ByCategory(ctx, theme)
	} else {
		pool, err = e.quotes.Short(ctx, e.content.Content.MaxQuoteLength)
	}
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	quote, _ := SelectByWeightedRandom(e.rng, e.now(), pool)
	e.mu.Unlock()
	return quote, nil
}

// UpdateUsageCounts records one use of each asset in combo.
func (e *Engine) UpdateUsageCounts(ctx context.Context, combo *Combination) error {
	usedAt := e.now().UTC()
	if err := e.videos.IncrementUsage(ctx, combo.Video.ID, usedAt); err != nil {
		return fmt.Errorf("update video usage: %w", err)
	}
	if err := e.music.IncrementUsage(ctx, combo.Music.ID, usedAt); err != nil {
		return fmt.Errorf("update music usage: %w", err)
	}
	if err := e.quotes.IncrementUsage(ctx, combo.Quote.ID, usedAt); err != nil {
		return fmt.Errorf("update quote usage: %w", err)
	}
	return nil
}

// NextTheme picks a configured theme at random, or "" when none exist.
func (e *Engine) NextTheme() string {
	themes := e.content.ThemeNames()
	if len(themes) == 0 {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return themes[e.rng.IntN(len(themes))]
}

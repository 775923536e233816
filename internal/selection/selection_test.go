package selection

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVideos struct {
	all       []*models.Video
	leastUsed int
	listed    int
	used      []int64
}

func (f *fakeVideos) List(context.Context) ([]*models.Video, error) {
	f.listed++
	return f.all, nil
}

func (f *fakeVideos) LeastUsed(_ context.Context, theme string, limit int) ([]*models.Video, error) {
	f.leastUsed++
	var out []*models.Video
	for _, v := range f.all {
		if v.Theme == theme && len(out) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVideos) IncrementUsage(_ context.Context, id int64, _ time.Time) error {
	f.used = append(f.used, id)
	return nil
}

type fakeMusic struct {
	all      []*models.Music
	byEnergy []string
	bass     int
	listed   int
	used     []int64
}

func (f *fakeMusic) List(context.Context) ([]*models.Music, error) {
	f.listed++
	return f.all, nil
}

func (f *fakeMusic) ByEnergy(_ context.Context, energy string) ([]*models.Music, error) {
	f.byEnergy = append(f.byEnergy, energy)
	var out []*models.Music
	for _, m := range f.all {
		if m.EnergyLevel == energy {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMusic) BassHeavy(_ context.Context, minScore float64) ([]*models.Music, error) {
	f.bass++
	var out []*models.Music
	for _, m := range f.all {
		if m.BassScore >= minScore {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMusic) IncrementUsage(_ context.Context, id int64, _ time.Time) error {
	f.used = append(f.used, id)
	return nil
}

type fakeQuotes struct {
	all        []*models.Quote
	categories []string
	short      []int
	used       []int64
	err        error
}

func (f *fakeQuotes) List(context.Context) ([]*models.Quote, error) { return f.all, nil }

func (f *fakeQuotes) ByCategory(_ context.Context, category string) ([]*models.Quote, error) {
	f.categories = append(f.categories, category)
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Quote
	for _, q := range f.all {
		if q.Category == category {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuotes) Short(_ context.Context, maxLength int) ([]*models.Quote, error) {
	f.short = append(f.short, maxLength)
	var out []*models.Quote
	for _, q := range f.all {
		if q.Length <= maxLength {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuotes) IncrementUsage(_ context.Context, id int64, _ time.Time) error {
	f.used = append(f.used, id)
	return nil
}

var testNow = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine(v *fakeVideos, m *fakeMusic, q *fakeQuotes, content *config.Content) *Engine {
	return NewEngine(v, m, q, content,
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(func() time.Time { return testNow }))
}

func motivationContent() *config.Content {
	c := config.DefaultContent()
	c.Content.Themes = map[string]config.Theme{"motivation": {MusicEnergy: models.EnergyHigh}}
	return c
}

func TestCalculateWeight(t *testing.T) {
	yesterday := testNow.Add(-24 * time.Hour)
	lastMonth := testNow.Add(-30 * 24 * time.Hour)

	tests := []struct {
		name  string
		asset *models.Video
		want  float64
	}{
		{name: "unused", asset: &models.Video{}, want: 1},
		{name: "used four times", asset: &models.Video{UsageCount: 4}, want: 0.2},
		{name: "used once long ago", asset: &models.Video{UsageCount: 1, LastUsedAt: &lastMonth}, want: 0.5},
		{name: "recent use divides by five", asset: &models.Video{UsageCount: 0, LastUsedAt: &yesterday}, want: 0.2},
		{name: "floored", asset: &models.Video{UsageCount: 50}, want: MinWeight},
		{name: "recent and heavy use floored", asset: &models.Video{UsageCount: 3, LastUsedAt: &yesterday}, want: MinWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateWeight(tt.asset, testNow), 1e-9)
		})
	}
}

func TestCalculateWeightNeverBelowFloor(t *testing.T) {
	recent := testNow.Add(-time.Minute)
	for usage := 0; usage < 500; usage += 7 {
		w := CalculateWeight(&models.Quote{UsageCount: usage, LastUsedAt: &recent}, testNow)
		assert.GreaterOrEqual(t, w, MinWeight)
	}
}

func TestSelectByWeightedRandomEmptyPool(t *testing.T) {
	_, ok := SelectByWeightedRandom[*models.Video](rand.New(rand.NewPCG(1, 1)), testNow, nil)
	assert.False(t, ok)
}

func TestSelectByWeightedRandomPrefersFreshAssets(t *testing.T) {
	fresh := &models.Music{ID: 1}
	worn := &models.Music{ID: 2, UsageCount: 40}
	rng := rand.New(rand.NewPCG(7, 7))

	picks := map[int64]int{}
	for i := 0; i < 2000; i++ {
		m, ok := SelectByWeightedRandom(rng, testNow, []*models.Music{fresh, worn})
		require.True(t, ok)
		picks[m.ID]++
	}
	// weights 1.0 vs 0.1: the fresh track should win roughly 10 of 11 draws.
	assert.Greater(t, picks[1], picks[2]*5)
	assert.Greater(t, picks[2], 0)
}

func TestFindMatchingCombinationExhaustsAfterFiveAttempts(t *testing.T) {
	videos := &fakeVideos{all: []*models.Video{{ID: 1, Filename: "long.mp4", Duration: 100, Theme: "motivation"}}}
	music := &fakeMusic{all: []*models.Music{{ID: 1, Filename: "short.mp3", Duration: 10, EnergyLevel: models.EnergyHigh}}}
	quotes := &fakeQuotes{all: []*models.Quote{{ID: 1, Category: "motivation"}}}
	engine := newTestEngine(videos, music, quotes, motivationContent())

	combo, err := engine.FindMatchingCombination(context.Background(), "motivation")
	assert.Nil(t, combo)
	assert.ErrorIs(t, err, ErrSelectionExhausted)
	assert.Equal(t, MaxAttempts, videos.leastUsed)
	assert.Len(t, music.byEnergy, MaxAttempts)
	assert.Len(t, quotes.categories, MaxAttempts)
	assert.Empty(t, videos.used)
}

func TestFindMatchingCombinationThemed(t *testing.T) {
	videos := &fakeVideos{all: []*models.Video{
		{ID: 1, Filename: "a.mp4", Duration: 10, Theme: "motivation"},
		{ID: 2, Filename: "b.mp4", Duration: 10, Theme: "calm"},
	}}
	music := &fakeMusic{all: []*models.Music{
		{ID: 1, Filename: "loud.mp3", Duration: 15, EnergyLevel: models.EnergyHigh},
		{ID: 2, Filename: "soft.mp3", Duration: 15, EnergyLevel: models.EnergyLow},
	}}
	quotes := &fakeQuotes{all: []*models.Quote{
		{ID: 1, Category: "motivation"},
		{ID: 2, Category: "calm"},
	}}
	engine := newTestEngine(videos, music, quotes, motivationContent())

	combo, err := engine.FindMatchingCombination(context.Background(), "motivation")
	require.NoError(t, err)
	assert.Equal(t, int64(1), combo.Video.ID)
	assert.Equal(t, int64(1), combo.Music.ID)
	assert.Equal(t, int64(1), combo.Quote.ID)
	assert.Equal(t, "motivation", combo.Theme)
	assert.Equal(t, []string{models.EnergyHigh}, music.byEnergy)
}

func TestFindMatchingCombinationWithoutThemeFallsBack(t *testing.T) {
	videos := &fakeVideos{all: []*models.Video{{ID: 3, Filename: "a.mp4", Duration: 12}}}
	music := &fakeMusic{all: []*models.Music{{ID: 4, Filename: "flat.mp3", Duration: 10, BassScore: 0.01}}}
	quotes := &fakeQuotes{all: []*models.Quote{{ID: 5, Length: 40}, {ID: 6, Length: 400}}}
	engine := newTestEngine(videos, music, quotes, config.DefaultContent())

	combo, err := engine.FindMatchingCombination(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTheme, combo.Theme)
	assert.Equal(t, int64(5), combo.Quote.ID)
	assert.Equal(t, 1, videos.listed)
	assert.Equal(t, 1, music.bass)
	assert.Equal(t, 1, music.listed)
	assert.Equal(t, []int{100}, quotes.short)
}

func TestFindMatchingCombinationStoreErrorAborts(t *testing.T) {
	videos := &fakeVideos{all: []*models.Video{{ID: 1, Duration: 1, Theme: "x"}}}
	music := &fakeMusic{all: []*models.Music{{ID: 1, Duration: 10}}}
	quotes := &fakeQuotes{err: errors.New("db down")}
	engine := newTestEngine(videos, music, quotes, config.DefaultContent())

	_, err := engine.FindMatchingCombination(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSelectionExhausted)
	assert.Len(t, quotes.categories, 1)
}

func TestUpdateUsageCounts(t *testing.T) {
	videos := &fakeVideos{}
	music := &fakeMusic{}
	quotes := &fakeQuotes{}
	engine := newTestEngine(videos, music, quotes, nil)

	combo := &Combination{Video: &models.Video{ID: 7}, Music: &models.Music{ID: 8}, Quote: &models.Quote{ID: 9}}
	require.NoError(t, engine.UpdateUsageCounts(context.Background(), combo))
	assert.Equal(t, []int64{7}, videos.used)
	assert.Equal(t, []int64{8}, music.used)
	assert.Equal(t, []int64{9}, quotes.used)
}

func TestNextTheme(t *testing.T) {
	engine := newTestEngine(&fakeVideos{}, &fakeMusic{}, &fakeQuotes{}, config.DefaultContent())
	assert.Equal(t, "", engine.NextTheme())

	engine = newTestEngine(&fakeVideos{}, &fakeMusic{}, &fakeQuotes{}, motivationContent())
	assert.Equal(t, "motivation", engine.NextTheme())
}

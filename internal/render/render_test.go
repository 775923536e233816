package render

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "render.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestCommandPipelineGenerate(t *testing.T) {
	script := writeScript(t, `req=$(cat)
out=$(printf '%s' "$req" | sed -n 's/.*"output_path":"\([^"]*\)".*/\1/p')
printf 'rendered' > "$out"
printf '{"duration":12.5,"quality_score":0.9}'
`)
	outputDir := filepath.Join(t.TempDir(), "out")
	p := NewCommandPipeline("/bin/sh "+script, outputDir)

	artifact, err := p.Generate(context.Background(), Request{VideoPath: "v.mp4", MusicPath: "m.mp3", QuoteText: "Go"})
	require.NoError(t, err)
	assert.Equal(t, outputDir, filepath.Dir(artifact.OutputPath))
	assert.Equal(t, 12.5, artifact.Duration)
	assert.Equal(t, 0.9, artifact.QualityScore)
	assert.Equal(t, int64(len("rendered")), artifact.FileSize)

	content, err := os.ReadFile(artifact.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "rendered", string(content))
}

func TestCommandPipelineSendsChosenOutputPath(t *testing.T) {
	captured := filepath.Join(t.TempDir(), "request.json")
	script := writeScript(t, `cat > "`+captured+`"
printf '{}'
`)
	outputDir := filepath.Join(t.TempDir(), "out")
	p := NewCommandPipeline("/bin/sh "+script, outputDir)

	artifact, err := p.GenerateTwoPart(context.Background(), TwoPartRequest{
		Request: Request{VideoPath: "v.mp4"},
		Hook:    "Stop waiting.",
		Payoff:  "Start now.",
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(captured)
	require.NoError(t, err)
	var sent TwoPartRequest
	require.NoError(t, json.Unmarshal(raw, &sent))
	assert.NotEmpty(t, sent.OutputPath)
	assert.Equal(t, artifact.OutputPath, sent.OutputPath)
	assert.Equal(t, outputDir, filepath.Dir(sent.OutputPath))
	assert.Equal(t, "Stop waiting.", sent.Hook)
}

func TestCommandPipelineReportsStderr(t *testing.T) {
	script := writeScript(t, "cat >/dev/null\necho 'ffmpeg exploded' >&2\nexit 3\n")
	p := NewCommandPipeline("/bin/sh "+script, t.TempDir())

	_, err := p.GenerateTwoPart(context.Background(), TwoPartRequest{Hook: "a", Payoff: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg exploded")
}

func TestCommandPipelineHonoursTimeout(t *testing.T) {
	script := writeScript(t, "cat >/dev/null\nexec sleep 5\n")
	p := NewCommandPipeline("/bin/sh "+script, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestCommandPipelineNotConfigured(t *testing.T) {
	_, err := NewCommandPipeline("", t.TempDir()).Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

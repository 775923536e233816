package quality

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mp4Header is the start of an ISO base media file with an "isom" brand.
var mp4Header = []byte{0x00, 0x00, 0x00, 0x20, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2', 'a', 'v', 'c', '1', 'm', 'p', '4', '1'}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestGateThreshold(t *testing.T) {
	gate := NewGate(0, nil)
	assert.Equal(t, DefaultMinScore, gate.MinScore)

	ok, _, err := gate.IsAcceptable(context.Background(), &Artifact{QualityScore: 0.75})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, reason, err := gate.IsAcceptable(context.Background(), &Artifact{QualityScore: 0.74})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "below threshold")

	ok, _, err = gate.IsAcceptable(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileValidator(t *testing.T) {
	video := writeFile(t, "reel.mp4", append(mp4Header, make([]byte, 512)...))
	text := writeFile(t, "notes.txt", []byte("definitely not a video file, just some text to sniff"))

	v := FileValidator{MinSize: 16}
	ok, err := v.IsAcceptable(context.Background(), video, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.IsAcceptable(context.Background(), text, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.IsAcceptable(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = FileValidator{MaxSize: 10}.IsAcceptable(context.Background(), video, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGateConsultsValidatorAfterThreshold(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.mp4")
	gate := NewGate(0.75, FileValidator{})

	ok, reason, err := gate.IsAcceptable(context.Background(), &Artifact{OutputPath: missing, QualityScore: 0.9})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "file validation failed", reason)
}

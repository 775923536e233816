// Package quality decides whether a rendered reel is good enough to queue.
package quality

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
)

const DefaultMinScore = 0.75

// Artifact is the subset of a render result the gate looks at.
type Artifact struct {
	OutputPath   string
	QualityScore float64
}

// Validator is an optional deeper check run on the rendered file.
type Validator interface {
	IsAcceptable(ctx context.Context, outputPath string, minScore float64) (bool, error)
}

type Gate struct {
	MinScore  float64
	Validator Validator
}

func NewGate(minScore float64, validator Validator) *Gate {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Gate{MinScore: minScore, Validator: validator}
}

// IsAcceptable reports whether a's score reaches the threshold and, when a
// validator is configured, whether the file itself passes.
func (g *Gate) IsAcceptable(ctx context.Context, a *Artifact) (bool, string, error) {
	if a == nil {
		return false, "no artifact", nil
	}
	if a.QualityScore < g.MinScore {
		return false, fmt.Sprintf("quality score %.2f below threshold %.2f", a.QualityScore, g.MinScore), nil
	}
	if g.Validator == nil {
		return true, "", nil
	}

	ok, err := g.Validator.IsAcceptable(ctx, a.OutputPath, g.MinScore)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "file validation failed", nil
	}
	return true, "", nil
}

var videoTypes = map[string]bool{
	"mp4":  true,
	"mov":  true,
	"webm": true,
	"m4v":  true,
}

// FileValidator checks that the rendered file exists, has a plausible size
// and sniffs as a video container.
type FileValidator struct {
	MinSize int64
	MaxSize int64
}

func (v FileValidator) IsAcceptable(_ context.Context, outputPath string, _ float64) (bool, error) {
	info, err := os.Stat(outputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if v.MinSize > 0 && info.Size() < v.MinSize {
		return false, nil
	}
	if v.MaxSize > 0 && info.Size() > v.MaxSize {
		return false, nil
	}

	return IsVideoFile(outputPath)
}

// IsVideoFile sniffs the header of path for a known video container.
func IsVideoFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}

	kind, err := filetype.Match(head[:n])
	if err != nil {
		return false, nil
	}
	return videoTypes[kind.Extension], nil
}

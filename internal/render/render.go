// Package render runs the external video renderer that turns a selected
// video, track and quote into a finished reel.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Request struct {
	VideoPath   string  `json:"video_path"`
	MusicPath   string  `json:"music_path"`
	QuoteText   string  `json:"quote_text"`
	QuoteAuthor string  `json:"quote_author"`
	Theme       string  `json:"theme"`
	Duration    float64 `json:"duration"`
	OutputPath  string  `json:"output_path"`
}

// TwoPartRequest renders a hook followed by a payoff over the same clip.
type TwoPartRequest struct {
	Request
	Hook   string `json:"hook"`
	Payoff string `json:"payoff"`
}

type Artifact struct {
	OutputPath   string  `json:"output_path"`
	Duration     float64 `json:"duration"`
	FileSize     int64   `json:"file_size"`
	QualityScore float64 `json:"quality_score"`
}

type Pipeline interface {
	Generate(ctx context.Context, req Request) (*Artifact, error)
	GenerateTwoPart(ctx context.Context, req TwoPartRequest) (*Artifact, error)
}

var ErrNotConfigured = errors.New("render command is not configured")

// CommandPipeline hands each request as JSON on stdin to an external
// command and reads the artifact as JSON from its stdout.
type CommandPipeline struct {
	command   []string
	outputDir string
}

func NewCommandPipeline(command, outputDir string) *CommandPipeline {
	return &CommandPipeline{command: strings.Fields(command), outputDir: outputDir}
}

func (p *CommandPipeline) Generate(ctx context.Context, req Request) (*Artifact, error) {
	return p.run(ctx, "single", &req, &req)
}

func (p *CommandPipeline) GenerateTwoPart(ctx context.Context, req TwoPartRequest) (*Artifact, error) {
	return p.run(ctx, "two_part", &req.Request, &req)
}

// run fills in base.OutputPath before encoding payload, so payload must
// point at the request that embeds base.
func (p *CommandPipeline) run(ctx context.Context, mode string, base *Request, payload any) (*Artifact, error) {
	if len(p.command) == 0 {
		return nil, ErrNotConfigured
	}

	if base.OutputPath == "" {
		name, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		base.OutputPath = filepath.Join(p.outputDir, "reel_"+name+".mp4")
	}
	if err := os.MkdirAll(filepath.Dir(base.OutputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	args := append(append([]string{}, p.command[1:]...), "--mode", mode)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	cmd.Stdin = bytes.NewReader(body)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("render timed out: %w", ctx.Err())
		}
		return nil, fmt.Errorf("render failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var artifact Artifact
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &artifact); err != nil {
		return nil, fmt.Errorf("decode render output: %w", err)
	}
	if artifact.OutputPath == "" {
		artifact.OutputPath = base.OutputPath
	}
	if artifact.FileSize == 0 {
		if info, err := os.Stat(artifact.OutputPath); err == nil {
			artifact.FileSize = info.Size()
		}
	}
	return &artifact, nil
}

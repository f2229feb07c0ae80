// Package ffmpeg wraps the external ffmpeg binary for frame extraction.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/classify"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/logger"
)

const (
	// versionTimeout bounds the availability check.
	versionTimeout = 5 * time.Second

	// extractTimeout bounds one extraction. Not user-configurable.
	extractTimeout = 300 * time.Second

	// framePattern is the ffmpeg output template for extracted frames.
	framePattern = "frame_%04d.png"
)

// ToolError is an external tool failure carrying the tool's diagnostic text.
type ToolError struct {
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	return e.Err.Error()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Extractor invokes ffmpeg to extract video frames.
type Extractor struct {
	ffmpegPath string
	log        logger.Logger
}

// NewExtractor creates an Extractor using the given ffmpeg binary path.
func NewExtractor(ffmpegPath string, log logger.Logger) *Extractor {
	return &Extractor{ffmpegPath: ffmpegPath, log: log}
}

// CheckAvailable verifies the ffmpeg binary runs, returning its version line.
func (e *Extractor) CheckAvailable(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, e.ffmpegPath, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("ffmpeg not available at %q: %w", e.ffmpegPath, err)
	}

	version, _, _ := strings.Cut(string(out), "\n")
	e.log.Debug("ffmpeg available", "version", version)
	return version, nil
}

// ExtractFrames extracts video frames as PNGs into destDir and returns their
// paths in frame order. fps <= 0 keeps the video's native frame rate. The
// invocation is bounded by a fixed timeout; on failure the returned error
// carries ffmpeg's stderr output.
func (e *Extractor) ExtractFrames(ctx context.Context, video, destDir string, fps int) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create frame folder: %w", err)
	}

	args := []string{"-i", video}
	if fps > 0 {
		args = append(args, "-vf", fmt.Sprintf("fps=%d", fps))
	}
	args = append(args, "-frame_pts", "0", filepath.Join(destDir, framePattern))

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.log.Debug("ffmpeg command", "args", strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		diag := stderr.String()
		e.log.Error("ffmpeg extraction failed", "video", filepath.Base(video), "stderr", tailLines(diag, 5))
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &ToolError{
				Err:    fmt.Errorf("ffmpeg timed out after %s", extractTimeout),
				Stderr: diag,
			}
		}
		return nil, &ToolError{
			Err:    fmt.Errorf("ffmpeg failed: %w", err),
			Stderr: diag,
		}
	}

	frames, err := filepath.Glob(filepath.Join(destDir, "frame_*.png"))
	if err != nil {
		return nil, fmt.Errorf("list extracted frames: %w", err)
	}
	classify.SortNatural(frames)

	e.log.Info("extracted frames", "video", filepath.Base(video), "frames", len(frames))
	return frames, nil
}

// tailLines joins the last n lines of s for compact log output.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

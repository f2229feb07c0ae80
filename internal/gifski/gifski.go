// Package gifski wraps the external gifski binary for GIF encoding and
// re-encoding.
package gifski

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/config"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/logger"
)

// ToolError is a gifski failure carrying the tool's diagnostic text.
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

const (
	versionTimeout = 5 * time.Second

	// encodeTimeout bounds one encode. Not user-configurable.
	encodeTimeout = 300 * time.Second

	// maxFrameArgs is the largest explicit frame list passed on the command
	// line. Above it the adapter hands gifski a directory glob instead, to
	// stay under platform argument-length limits.
	maxFrameArgs = 1000
)

// Encoder invokes gifski to encode frames into a GIF or re-encode an
// existing GIF.
type Encoder struct {
	gifskiPath string
	log        logger.Logger
}

// NewEncoder creates an Encoder using the given gifski binary path.
func NewEncoder(gifskiPath string, log logger.Logger) *Encoder {
	return &Encoder{gifskiPath: gifskiPath, log: log}
}

// CheckAvailable verifies the gifski binary runs, returning its version line.
func (g *Encoder) CheckAvailable(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, g.gifskiPath, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("gifski not available at %q: %w", g.gifskiPath, err)
	}

	version, _, _ := strings.Cut(string(out), "\n")
	g.log.Debug("gifski available", "version", version)
	return strings.TrimSpace(version), nil
}

// EncodeFrames encodes an ordered frame list into a GIF at output.
func (g *Encoder) EncodeFrames(ctx context.Context, frames []string, output string, s config.Settings) error {
	inputs := frames
	if len(frames) > maxFrameArgs {
		inputs = []string{filepath.Join(filepath.Dir(frames[0]), "frame_*.png")}
		g.log.Debug("frame list exceeds argument limit, using glob input", "frames", len(frames))
	}
	return g.run(ctx, buildArgs(output, s, true, inputs), len(frames))
}

// Optimize re-encodes an existing GIF at output with the given settings.
func (g *Encoder) Optimize(ctx context.Context, src, output string, s config.Settings) error {
	return g.run(ctx, buildArgs(output, s, false, []string{src}), 1)
}

func (g *Encoder) run(ctx context.Context, args []string, inputCount int) error {
	ctx, cancel := context.WithTimeout(ctx, encodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.gifskiPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	g.log.Debug("gifski command", "args", firstArgs(args, 10), "inputs", inputCount)

	if err := cmd.Run(); err != nil {
		diag := stderr.String()
		if ctx.Err() == context.DeadlineExceeded {
			return &ToolError{
				Err:    fmt.Errorf("gifski timed out after %s", encodeTimeout),
				Stderr: diag,
			}
		}
		return &ToolError{
			Err:    fmt.Errorf("gifski failed: %w", err),
			Stderr: diag,
		}
	}
	return nil
}

// buildArgs assembles the gifski argument list. withFPS is set when encoding
// from frames; re-encoding an existing GIF keeps the source timing.
func buildArgs(output string, s config.Settings, withFPS bool, inputs []string) []string {
	args := []string{"-o", output, "--quality", strconv.Itoa(s.Quality)}

	if s.Width > 0 {
		args = append(args, "--width", strconv.Itoa(s.Width))
	}
	if s.Height > 0 {
		args = append(args, "--height", strconv.Itoa(s.Height))
	}
	if withFPS {
		args = append(args, "--fps", strconv.Itoa(s.FPS))
	}

	args = append(args,
		"--lossy-quality", strconv.Itoa(s.LossyQuality),
		"--motion-quality", strconv.Itoa(s.MotionQuality),
	)

	return append(args, inputs...)
}

// firstArgs joins up to n leading arguments for compact log output.
func firstArgs(args []string, n int) string {
	if len(args) > n {
		return strings.Join(args[:n], " ") + " ..."
	}
	return strings.Join(args, " ")
}

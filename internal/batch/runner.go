// Package batch contains the core orchestration loop: it enumerates work
// items for a mode, drives the external tool adapters per item, tracks run
// statistics, honors cooperative cancellation and reports progress through
// a typed event stream.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/classify"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/config"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/logger"
)

// FrameExtractor extracts video frames into a folder.
// Implemented by ffmpeg.Extractor.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, video, destDir string, fps int) ([]string, error)
}

// GIFEncoder encodes frames into a GIF or re-encodes an existing one.
// Implemented by gifski.Encoder.
type GIFEncoder interface {
	EncodeFrames(ctx context.Context, frames []string, output string, s config.Settings) error
	Optimize(ctx context.Context, src, output string, s config.Settings) error
}

// Request describes one run. Settings are a snapshot owned by the caller;
// the runner never mutates them.
type Request struct {
	Mode      Mode
	InputDir  string
	OutputDir string
	Settings  config.Settings

	// TestRun truncates the work list to its first item and prefixes output
	// filenames with "test_", bypassing the skip-existing check.
	TestRun bool

	// Events receives progress and status events, in order, from the run
	// goroutine. Nil disables event reporting.
	Events chan<- Event
}

// Runner executes batch runs against a pair of tool adapters.
type Runner struct {
	extractor FrameExtractor
	encoder   GIFEncoder
	log       logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(extractor FrameExtractor, encoder GIFEncoder, log logger.Logger) *Runner {
	return &Runner{extractor: extractor, encoder: encoder, log: log}
}

// Run executes one batch run synchronously. It returns the accumulated
// statistics on completion or cancellation (cancellation is not an error),
// and an error only when enumeration finds nothing to do or an internal
// failure occurs before any per-item handling. Per-item tool failures are
// counted in Stats.Failed and never abort the batch.
//
// Cancellation is cooperative: ctx is checked once at the top of each loop
// iteration. An in-flight tool invocation finishes (or hits its own
// timeout) before the next check.
func (r *Runner) Run(ctx context.Context, req Request) (*Stats, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("unknown mode: %d", int(req.Mode))
	}
	if err := req.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	items, err := r.enumerate(req)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no %s found in input folder", req.Mode.kind())
	}

	if req.TestRun {
		items = items[:1]
		r.log.Info("test run: processing first item only", "mode", req.Mode.String())
	}

	stats := &Stats{Total: len(items)}

	for i, item := range items {
		if ctx.Err() != nil {
			r.log.Info("run cancelled", "visited", stats.Visited(), "total", stats.Total)
			break
		}
		n := i + 1

		outPath := OutputPath(req.OutputDir, item, req.Mode, req.TestRun, req.Settings)

		// Skip logic checks existence only: a stale output from different
		// settings is never regenerated in bulk mode. Test runs are the
		// escape hatch for previewing new settings.
		if !req.TestRun {
			if _, err := os.Stat(outPath); err == nil {
				stats.Skipped++
				r.log.Info("skipped item, output exists", "item", item.Describe())
				r.status(req, fmt.Sprintf("[%d/%d] Skipped %s (already exists)", n, stats.Total, item.Describe()))
				r.progress(req, n, stats.Total)
				continue
			}
		}

		r.processItem(ctx, req, item, n, outPath, stats)
		r.progress(req, n, stats.Total)
	}

	return stats, nil
}

// enumerate builds the work list for the requested mode.
func (r *Runner) enumerate(req Request) ([]Item, error) {
	c, err := classify.Scan(req.InputDir)
	if err != nil {
		return nil, err
	}

	var items []Item
	switch req.Mode {
	case ModeVideosToGIF:
		videos := c.Videos
		if sameDir(req.InputDir, req.OutputDir) {
			// Converting in place: generated .gif outputs must not re-enter
			// the work list on a rescan.
			videos = excludeGifs(videos)
		}
		for _, v := range videos {
			items = append(items, VideoItem{Path: v})
		}

	case ModeImagesToGIF:
		if len(c.Images) == 0 {
			return nil, nil
		}
		for _, g := range classify.GroupImages(c.Images) {
			items = append(items, ImageGroupItem{Base: g.BaseName, Paths: g.Paths})
		}

	case ModeOptimizeGIFs:
		for _, g := range c.Gifs {
			items = append(items, GifItem{Path: g})
		}
	}

	return items, nil
}

// processItem runs the per-item tool pipeline and updates the counters.
// Failures are logged and counted, never propagated.
func (r *Runner) processItem(ctx context.Context, req Request, item Item, n int, outPath string, stats *Stats) {
	// An in-flight tool invocation is allowed to finish even after the run
	// is cancelled; each adapter enforces its own timeout.
	toolCtx := context.WithoutCancel(ctx)

	switch it := item.(type) {
	case VideoItem:
		r.processVideo(toolCtx, req, it, n, outPath, stats)

	case ImageGroupItem:
		r.status(req, fmt.Sprintf("[%d/%d] Creating GIF from %d images (%s)...", n, stats.Total, len(it.Paths), it.Base))
		r.log.Info("processing image group", "group", it.Base, "images", len(it.Paths))

		if err := r.encoder.EncodeFrames(toolCtx, it.Paths, outPath, req.Settings); err != nil {
			stats.Failed++
			r.log.Error("failed to create GIF", "group", it.Base, "error", err)
			return
		}
		stats.Processed++
		r.log.Info("created GIF", "output", filepath.Base(outPath), "size", humanize.Bytes(uint64(fileSize(outPath))))

	case GifItem:
		r.status(req, fmt.Sprintf("[%d/%d] Optimizing %s...", n, stats.Total, it.Describe()))
		r.log.Info("optimizing GIF", "gif", it.Describe())

		originalSize := fileSize(it.Path)
		stats.OriginalBytes += originalSize

		if err := r.encoder.Optimize(toolCtx, it.Path, outPath, req.Settings); err != nil {
			stats.Failed++
			r.log.Error("failed to optimize GIF", "gif", it.Describe(), "error", err)
			return
		}
		stats.Processed++
		optimizedSize := fileSize(outPath)
		stats.OptimizedBytes += optimizedSize
		r.log.Info("optimized GIF",
			"output", filepath.Base(outPath),
			"original", humanize.Bytes(uint64(originalSize)),
			"optimized", humanize.Bytes(uint64(optimizedSize)))
	}
}

// processVideo extracts frames then encodes them, purging the temp folder
// unless the settings ask to keep it.
func (r *Runner) processVideo(toolCtx context.Context, req Request, item VideoItem, n int, outPath string, stats *Stats) {
	r.status(req, fmt.Sprintf("[%d/%d] Extracting frames from %s...", n, stats.Total, item.Describe()))
	r.log.Info("processing video", "video", item.Describe())

	tempDir, err := ensureTempDir(req.OutputDir)
	if err != nil {
		stats.Failed++
		r.log.Error("failed to create temp folder", "error", err)
		return
	}

	frames, err := r.extractor.ExtractFrames(toolCtx, item.Path, tempDir, req.Settings.FPS)
	if err != nil || len(frames) == 0 {
		stats.Failed++
		if err == nil {
			err = fmt.Errorf("no frames extracted")
		}
		r.log.Error("failed to extract frames", "video", item.Describe(), "error", err)
		cleanTempDir(tempDir)
		return
	}

	r.status(req, fmt.Sprintf("[%d/%d] Creating GIF from %d frames (%s)...", n, stats.Total, len(frames), item.Describe()))

	encodeErr := r.encoder.EncodeFrames(toolCtx, frames, outPath, req.Settings)

	if req.Settings.KeepTempFiles {
		r.log.Info("keeping extracted frames", "folder", tempDir)
	} else {
		cleanTempDir(tempDir)
	}

	if encodeErr != nil {
		stats.Failed++
		r.log.Error("failed to create GIF", "video", item.Describe(), "error", encodeErr)
		return
	}
	stats.Processed++
	r.log.Info("created GIF", "output", filepath.Base(outPath), "size", humanize.Bytes(uint64(fileSize(outPath))))
}

func (r *Runner) status(req Request, message string) {
	if req.Events != nil {
		req.Events <- Event{Type: EventStatus, Message: message}
	}
}

func (r *Runner) progress(req Request, current, total int) {
	if req.Events != nil {
		req.Events <- Event{Type: EventProgress, Current: current, Total: total}
	}
}

// sameDir reports whether two folder paths refer to the same directory.
func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// excludeGifs drops .gif paths from a work list.
func excludeGifs(paths []string) []string {
	out := paths[:0:0]
	for _, p := range paths {
		if !classify.IsGifFile(p) {
			out = append(out, p)
		}
	}
	return out
}

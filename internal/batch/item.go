package batch

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Mode selects what a run converts.
type Mode int

const (
	// ModeVideosToGIF extracts frames from each video and encodes a GIF.
	ModeVideosToGIF Mode = 1

	// ModeImagesToGIF encodes each grouped image sequence into a GIF.
	ModeImagesToGIF Mode = 2

	// ModeOptimizeGIFs re-encodes each existing GIF at smaller size.
	ModeOptimizeGIFs Mode = 3
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m >= ModeVideosToGIF && m <= ModeOptimizeGIFs
}

func (m Mode) String() string {
	switch m {
	case ModeVideosToGIF:
		return "videos-to-gif"
	case ModeImagesToGIF:
		return "images-to-gif"
	case ModeOptimizeGIFs:
		return "optimize-gifs"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// kind names the input file kind for enumeration error messages.
func (m Mode) kind() string {
	switch m {
	case ModeVideosToGIF:
		return "video files"
	case ModeImagesToGIF:
		return "image files"
	default:
		return "GIF files"
	}
}

// Item is one unit of batch work. Identity is the source path(s), fixed
// when the work list is enumerated.
type Item interface {
	// BaseName is the output filename stem.
	BaseName() string

	// Describe names the item in status messages and logs.
	Describe() string
}

// VideoItem is a single video file.
type VideoItem struct {
	Path string
}

func (v VideoItem) BaseName() string {
	return stem(v.Path)
}

func (v VideoItem) Describe() string {
	return filepath.Base(v.Path)
}

// ImageGroupItem is an ordered image sequence sharing a base name.
type ImageGroupItem struct {
	Base  string
	Paths []string
}

func (g ImageGroupItem) BaseName() string {
	return g.Base
}

func (g ImageGroupItem) Describe() string {
	return g.Base
}

// GifItem is a single existing GIF file.
type GifItem struct {
	Path string
}

func (g GifItem) BaseName() string {
	return stem(g.Path)
}

func (g GifItem) Describe() string {
	return filepath.Base(g.Path)
}

// stem returns the filename without its extension.
func stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

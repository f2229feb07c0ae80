// Package classify partitions an input folder into videos, images and GIFs
// by extension, and groups numbered image files into ordered sequences.
package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Recognized extensions, matched case-insensitively. These sets are part of
// the caller-visible contract: anything else in the folder is ignored.
var (
	videoExtensions = map[string]struct{}{
		".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".webm": {},
	}
	imageExtensions = map[string]struct{}{
		".png": {}, ".jpg": {}, ".jpeg": {}, ".bmp": {},
	}
)

// GifExtension is the single recognized GIF extension.
const GifExtension = ".gif"

// IsVideoFile reports whether the filename has a recognized video extension.
func IsVideoFile(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsImageFile reports whether the filename has a recognized image extension.
func IsImageFile(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsGifFile reports whether the filename has the GIF extension.
func IsGifFile(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == GifExtension
}

// Classification is the result of scanning one folder. Each list is
// naturally sorted by filename.
type Classification struct {
	Videos []string `json:"videos"`
	Images []string `json:"images"`
	Gifs   []string `json:"gifs"`
}

// Scan partitions the files of a folder (non-recursive) into videos, images
// and GIFs. Duplicate paths, as produced by case-insensitive filesystem
// double-matches, are removed.
func Scan(folder string) (*Classification, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("scan input folder: %w", err)
	}

	c := &Classification{}
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		path := filepath.Join(folder, name)
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		switch {
		case IsVideoFile(name):
			c.Videos = append(c.Videos, path)
		case IsImageFile(name):
			c.Images = append(c.Images, path)
		case IsGifFile(name):
			c.Gifs = append(c.Gifs, path)
		}
	}

	SortNatural(c.Videos)
	SortNatural(c.Images)
	SortNatural(c.Gifs)

	return c, nil
}

// SortNatural sorts paths in place by their filename, comparing digit runs
// as integers so "frame2" sorts before "frame10".
func SortNatural(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return NaturalLess(filepath.Base(paths[i]), filepath.Base(paths[j]))
	})
}

// NaturalLess reports whether a sorts before b under natural ordering:
// case-insensitive, with maximal digit runs compared numerically.
func NaturalLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for len(la) > 0 && len(lb) > 0 {
		if isDigit(la[0]) && isDigit(lb[0]) {
			da, ra := splitDigits(la)
			db, rb := splitDigits(lb)
			if cmp := compareNumeric(da, db); cmp != 0 {
				return cmp < 0
			}
			la, lb = ra, rb
			continue
		}
		if la[0] != lb[0] {
			return la[0] < lb[0]
		}
		la, lb = la[1:], lb[1:]
	}
	return len(la) < len(lb)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// splitDigits returns the leading digit run of s and the remainder.
func splitDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

// compareNumeric compares two digit strings by value without parsing them,
// so arbitrarily long runs cannot overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

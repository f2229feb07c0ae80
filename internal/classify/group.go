package classify

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Trailing numbering conventions stripped to form a group's base name:
// "anim_001", "anim-001", "anim (1)" all group under "anim". A plain
// "walk 2" is handled by the second pattern. Two different conventions in
// the same folder produce independent groups; that ambiguity is accepted.
var (
	trailingNumber = regexp.MustCompile(`[_\-\s]\(?(\d+)\)?$`)
	trailingSpaced = regexp.MustCompile(`\s+\d+$`)
)

// ImageGroup is an ordered image sequence sharing one base name.
type ImageGroup struct {
	BaseName string   `json:"base_name"`
	Paths    []string `json:"paths"`
}

// BaseNameFor derives the group base name from an image path by stripping
// one trailing numeric suffix from the filename stem. If no convention
// matches, the whole stem is the base name.
func BaseNameFor(path string) string {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	base := trailingNumber.ReplaceAllString(stem, "")
	if base == stem {
		base = trailingSpaced.ReplaceAllString(stem, "")
	}
	return base
}

// GroupImages groups image paths into sequences by shared base name.
// Groups appear in first-seen order; each group's members are naturally
// sorted.
func GroupImages(images []string) []ImageGroup {
	index := make(map[string]int)
	var groups []ImageGroup

	for _, path := range images {
		base := BaseNameFor(path)
		if i, ok := index[base]; ok {
			groups[i].Paths = append(groups[i].Paths, path)
			continue
		}
		index[base] = len(groups)
		groups = append(groups, ImageGroup{BaseName: base, Paths: []string{path}})
	}

	for i := range groups {
		sort.SliceStable(groups[i].Paths, func(a, b int) bool {
			return NaturalLess(filepath.Base(groups[i].Paths[a]), filepath.Base(groups[i].Paths[b]))
		})
	}

	return groups
}

package batch

import (
	"os"
	"path/filepath"
)

// TempDirName is the working subfolder created inside the output folder for
// extracted video frames.
const TempDirName = "temp"

// ensureTempDir creates the temp subfolder on demand and returns its path.
func ensureTempDir(outputDir string) (string, error) {
	dir := filepath.Join(outputDir, TempDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// cleanTempDir removes files from the temp folder, leaving subdirectories
// alone. Removal errors are ignored; a leftover frame only wastes space.
func cleanTempDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		_ = os.Remove(filepath.Join(dir, e.Name()))
	}
}

// fileSize returns the size of a file in bytes, or 0 if it cannot be read.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

package batch

import (
	"fmt"
	"path/filepath"

	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/config"
)

// OutputPath derives the output file for an item. It is a pure function of
// the item identity, mode, test flag, and settings; the skip logic and the
// idempotence of bulk runs both depend on that.
//
// Bulk:     <outputDir>/<base>.gif
// Test:     <outputDir>/test_<base>.gif
// Optimize: <outputDir>/[test_]<stem>_optim_<quality>q_<fps>fps.gif
func OutputPath(outputDir string, item Item, mode Mode, testRun bool, s config.Settings) string {
	name := item.BaseName() + ".gif"
	if mode == ModeOptimizeGIFs {
		name = fmt.Sprintf("%s_optim_%dq_%dfps.gif", item.BaseName(), s.Quality, s.FPS)
	}
	if testRun {
		name = "test_" + name
	}
	return filepath.Join(outputDir, name)
}

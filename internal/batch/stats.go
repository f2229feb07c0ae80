package batch

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats accumulates counters for one run. The orchestrator owns it
// exclusively while running and returns a final snapshot to the caller.
// Invariant: Processed+Skipped+Failed <= Total, with equality on normal
// (non-cancelled) completion.
type Stats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	// Source and output sizes, accumulated in optimize mode only.
	OriginalBytes  int64 `json:"original_bytes,omitempty"`
	OptimizedBytes int64 `json:"optimized_bytes,omitempty"`
}

// Visited is the number of items the loop reached.
func (s *Stats) Visited() int {
	return s.Processed + s.Skipped + s.Failed
}

// Summary renders the single end-of-run message.
func (s *Stats) Summary(mode Mode) string {
	msg := fmt.Sprintf("%d processed, %d skipped, %d failed of %d",
		s.Processed, s.Skipped, s.Failed, s.Total)
	if mode == ModeOptimizeGIFs && s.OriginalBytes > 0 {
		msg += fmt.Sprintf(" (%s → %s)",
			humanize.Bytes(uint64(s.OriginalBytes)),
			humanize.Bytes(uint64(s.OptimizedBytes)))
	}
	return msg
}

package batch

// Event types emitted during a run. Events for item i are emitted after all
// of item i's side effects and before any event for item i+1.
const (
	// EventProgress carries (Current, Total); emitted exactly once per
	// visited item, whatever its outcome.
	EventProgress = "progress"

	// EventStatus carries a free-form human-readable Message.
	EventStatus = "status"

	// EventDone is the terminal event of a run: Stats on success (including
	// cancellation), Err on failure.
	EventDone = "done"
)

// Event is one typed message on a run's event stream.
type Event struct {
	Type    string `json:"type"`
	RunID   string `json:"run_id,omitempty"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
	Stats   *Stats `json:"stats,omitempty"`
	Err     string `json:"error,omitempty"`
}

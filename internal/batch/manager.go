package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/logger"
)

// ErrRunActive is returned by Start while an earlier run is still going.
var ErrRunActive = errors.New("a run is already active")

// Terminal run statuses recorded in history.
const (
	StatusComplete  = "complete"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Store persists finished runs. Implemented by internal/store.SQLiteStore.
type Store interface {
	SaveRun(rec *RunRecord) error
}

// RunRecord is the persisted history row for one finished run.
type RunRecord struct {
	ID        string `json:"id"`
	Mode      string `json:"mode"`
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
	TestRun   bool   `json:"test_run"`
	Status    string `json:"status"`

	Total          int   `json:"total"`
	Processed      int   `json:"processed"`
	Skipped        int   `json:"skipped"`
	Failed         int   `json:"failed"`
	OriginalBytes  int64 `json:"original_bytes,omitempty"`
	OptimizedBytes int64 `json:"optimized_bytes,omitempty"`

	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Manager owns run lifecycle: it enforces a single active run, fans events
// out to subscribers with the run ID attached, and persists a history
// record when the run finishes.
type Manager struct {
	runner *Runner
	store  Store // nil = no history
	log    logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	runID  string

	subsMu      sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewManager creates a Manager. store may be nil to disable run history.
func NewManager(runner *Runner, store Store, log logger.Logger) *Manager {
	return &Manager{
		runner:      runner,
		store:       store,
		log:         log,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Start launches a run in the background and returns its ID. The Events
// field of req is owned by the manager and must be left nil.
func (m *Manager) Start(req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return "", ErrRunActive
	}

	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.runID = id

	m.log.Info("run started",
		"run_id", id,
		"mode", req.Mode.String(),
		"input", req.InputDir,
		"output", req.OutputDir,
		"test_run", req.TestRun)

	go m.run(ctx, cancel, id, req)
	return id, nil
}

// Cancel requests cancellation of the active run. It returns false when no
// run is active. The run keeps going until its current item finishes.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel == nil {
		return false
	}
	m.log.Info("cancellation requested", "run_id", m.runID)
	m.cancel()
	return true
}

// Active reports whether a run is in flight.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// ActiveRunID returns the ID of the in-flight run, or "".
func (m *Manager) ActiveRunID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return ""
	}
	return m.runID
}

// run executes one run to completion, then records and announces it.
func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, id string, req Request) {
	defer cancel()

	events := make(chan Event, 64)
	req.Events = events

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			ev.RunID = id
			m.broadcast(ev)
		}
	}()

	startedAt := time.Now().UTC()
	stats, err := m.runner.Run(ctx, req)
	close(events)
	wg.Wait()

	status := StatusComplete
	switch {
	case err != nil:
		status = StatusFailed
	case ctx.Err() != nil:
		status = StatusCancelled
	}

	rec := &RunRecord{
		ID:         id,
		Mode:       req.Mode.String(),
		InputDir:   req.InputDir,
		OutputDir:  req.OutputDir,
		TestRun:    req.TestRun,
		Status:     status,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
	if stats != nil {
		rec.Total = stats.Total
		rec.Processed = stats.Processed
		rec.Skipped = stats.Skipped
		rec.Failed = stats.Failed
		rec.OriginalBytes = stats.OriginalBytes
		rec.OptimizedBytes = stats.OptimizedBytes
	}
	if err != nil {
		rec.Error = err.Error()
	}
	m.persist(rec)

	done := Event{Type: EventDone, RunID: id, Status: status, Stats: stats}
	if err != nil {
		done.Err = err.Error()
		m.log.Error("run failed", "run_id", id, "error", err)
	} else {
		done.Message = stats.Summary(req.Mode)
		m.log.Info("run finished", "run_id", id, "status", status, "summary", done.Message)
	}

	m.mu.Lock()
	m.cancel = nil
	m.runID = ""
	m.mu.Unlock()

	m.broadcast(done)
}

// persist saves a finished run to the store (if configured).
func (m *Manager) persist(rec *RunRecord) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveRun(rec); err != nil {
		m.log.Warn("failed to persist run record", "run_id", rec.ID, "error", err)
	}
}

// Subscribe registers an event channel. The caller must Unsubscribe when
// done reading.
func (m *Manager) Subscribe() chan Event {
	ch := make(chan Event, 100)

	m.subsMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subsMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes the channel.
func (m *Manager) Unsubscribe(ch chan Event) {
	m.subsMu.Lock()
	delete(m.subscribers, ch)
	m.subsMu.Unlock()

	close(ch)
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event Event) {
	m.subsMu.RLock()
	defer m.subsMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip this subscriber
		}
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/batch"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEncoder writes output files instead of running gifski. An optional
// release channel holds every call until it yields.
type fakeEncoder struct {
	release chan struct{}
}

func (f *fakeEncoder) wait() {
	if f.release != nil {
		<-f.release
	}
}

func (f *fakeEncoder) EncodeFrames(ctx context.Context, frames []string, output string, s config.Settings) error {
	f.wait()
	return os.WriteFile(output, []byte("gif"), 0644)
}

func (f *fakeEncoder) Optimize(ctx context.Context, src, output string, s config.Settings) error {
	f.wait()
	return os.WriteFile(output, []byte("gif"), 0644)
}

type fakeExtractor struct{}

func (fakeExtractor) ExtractFrames(ctx context.Context, video, destDir string, fps int) ([]string, error) {
	frame := filepath.Join(destDir, "frame_0001.png")
	if err := os.WriteFile(frame, []byte("frame"), 0644); err != nil {
		return nil, err
	}
	return []string{frame}, nil
}

type fakeChecker struct {
	version string
	err     error
}

func (f fakeChecker) CheckAvailable(ctx context.Context) (string, error) {
	return f.version, f.err
}

type fakeHistory struct {
	runs  []*batch.RunRecord
	saved int64
}

func (f *fakeHistory) ListRuns(limit int) ([]*batch.RunRecord, error) { return f.runs, nil }
func (f *fakeHistory) TotalSavedBytes() (int64, error)                { return f.saved, nil }

func setupTestHandler(t *testing.T, enc *fakeEncoder) (*Handler, *batch.Manager) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfgPath := filepath.Join(t.TempDir(), "gifopt.yaml")

	runner := batch.NewRunner(fakeExtractor{}, enc, testLogger())
	manager := batch.NewManager(runner, nil, testLogger())

	h := NewHandler(manager, &fakeHistory{saved: 1234}, fakeChecker{version: "7.0"}, fakeChecker{err: errors.New("not found")}, cfg, cfgPath, testLogger())
	return h, manager
}

func writeGifs(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("gif"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func waitIdle(t *testing.T, m *batch.Manager) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for m.Active() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for run to finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScanEndpoint(t *testing.T) {
	h, _ := setupTestHandler(t, &fakeEncoder{})

	dir := t.TempDir()
	writeGifs(t, dir, "a.mp4", "anim_001.png", "anim_002.png", "c.gif")

	req := httptest.NewRequest("GET", "/api/scan?path="+url.QueryEscape(dir), nil)
	w := httptest.NewRecorder()
	h.Scan(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var result map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if result["videos"] != 1 || result["images"] != 2 || result["gifs"] != 1 {
		t.Errorf("unexpected counts: %v", result)
	}
	if result["image_groups"] != 1 {
		t.Errorf("expected 1 image group, got %d", result["image_groups"])
	}
}

func TestScanRequiresPath(t *testing.T) {
	h, _ := setupTestHandler(t, &fakeEncoder{})

	w := httptest.NewRecorder()
	h.Scan(w, httptest.NewRequest("GET", "/api/scan", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func startRunBody(t *testing.T, mode int, inDir, outDir string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(StartRunRequest{Mode: mode, InputDir: inDir, OutputDir: outDir})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewReader(body)
}

func TestStartRunEndpoint(t *testing.T) {
	h, m := setupTestHandler(t, &fakeEncoder{})

	inDir, outDir := t.TempDir(), t.TempDir()
	writeGifs(t, inDir, "a.gif")

	req := httptest.NewRequest("POST", "/api/runs", startRunBody(t, 3, inDir, outDir))
	w := httptest.NewRecorder()
	h.StartRun(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["run_id"] == "" {
		t.Error("expected a run_id")
	}

	waitIdle(t, m)

	// The last used folders are remembered for the next session.
	saved, err := config.Load(h.cfgPath)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if saved.LastInputDir != inDir || saved.LastOutputDir != outDir {
		t.Errorf("expected folders persisted, got %q / %q", saved.LastInputDir, saved.LastOutputDir)
	}
}

func TestStartRunValidation(t *testing.T) {
	h, _ := setupTestHandler(t, &fakeEncoder{})
	outDir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"bad json", "{"},
		{"unknown mode", `{"mode": 9, "input_dir": "/tmp", "output_dir": "/tmp"}`},
		{"missing input", `{"mode": 1, "output_dir": "` + outDir + `"}`},
		{"input does not exist", `{"mode": 1, "input_dir": "/does/not/exist", "output_dir": "` + outDir + `"}`},
		{"invalid settings", `{"mode": 1, "input_dir": "` + outDir + `", "output_dir": "` + outDir + `", "settings": {"quality": 500, "fps": 20, "lossy_quality": 80, "motion_quality": 80}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/runs", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()
			h.StartRun(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestStartRunConflict(t *testing.T) {
	enc := &fakeEncoder{release: make(chan struct{})}
	h, m := setupTestHandler(t, enc)

	inDir, outDir := t.TempDir(), t.TempDir()
	writeGifs(t, inDir, "a.gif")

	w := httptest.NewRecorder()
	h.StartRun(w, httptest.NewRequest("POST", "/api/runs", startRunBody(t, 3, inDir, outDir)))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.StartRun(w, httptest.NewRequest("POST", "/api/runs", startRunBody(t, 3, inDir, outDir)))
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}

	close(enc.release)
	waitIdle(t, m)
}

func TestCancelRunEndpoint(t *testing.T) {
	h, _ := setupTestHandler(t, &fakeEncoder{})

	w := httptest.NewRecorder()
	h.CancelRun(w, httptest.NewRequest("POST", "/api/runs/cancel", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["cancelled"] {
		t.Error("expected cancelled=false with no active run")
	}
}

func TestListRunsEndpoint(t *testing.T) {
	h, _ := setupTestHandler(t, &fakeEncoder{})

	w := httptest.NewRecorder()
	h.ListRuns(w, httptest.NewRequest("GET", "/api/runs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["total_saved"].(float64) != 1234 {
		t.Errorf("unexpected total_saved: %v", resp["total_saved"])
	}
}

func TestSettingsEndpoints(t *testing.T) {
	h, _ := setupTestHandler(t, &fakeEncoder{})

	// GET returns current settings
	w := httptest.NewRecorder()
	h.GetSettings(w, httptest.NewRequest("GET", "/api/settings", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var s config.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if s.Quality != 70 {
		t.Errorf("expected default quality 70, got %d", s.Quality)
	}

	// PUT updates and persists
	s.Quality = 90
	body, _ := json.Marshal(s)
	w = httptest.NewRecorder()
	h.UpdateSettings(w, httptest.NewRequest("PUT", "/api/settings", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	saved, err := config.Load(h.cfgPath)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if saved.Settings.Quality != 90 {
		t.Errorf("expected persisted quality 90, got %d", saved.Settings.Quality)
	}

	// PUT rejects invalid settings
	s.Quality = 500
	body, _ = json.Marshal(s)
	w = httptest.NewRecorder()
	h.UpdateSettings(w, httptest.NewRequest("PUT", "/api/settings", bytes.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestToolsEndpoint(t *testing.T) {
	h, _ := setupTestHandler(t, &fakeEncoder{})

	w := httptest.NewRecorder()
	h.Tools(w, httptest.NewRequest("GET", "/api/tools", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp map[string]map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["ffmpeg"]["available"] != true || resp["ffmpeg"]["version"] != "7.0" {
		t.Errorf("unexpected ffmpeg status: %v", resp["ffmpeg"])
	}
	if resp["gifski"]["available"] != false {
		t.Errorf("unexpected gifski status: %v", resp["gifski"])
	}
}

func TestRunStreamEndpoint(t *testing.T) {
	h, _ := setupTestHandler(t, &fakeEncoder{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest("GET", "/api/runs/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan bool)
	go func() {
		h.RunStream(w, req)
		done <- true
	}()

	select {
	case <-done:
		// Good - context cancelled
	case <-time.After(time.Second):
		t.Error("SSE handler didn't respect context cancellation")
	}

	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("expected text/event-stream content type, got %s", w.Header().Get("Content-Type"))
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("data:")) {
		t.Error("expected SSE data in response")
	}
}

// Package api provides the HTTP API handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/batch"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/classify"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/config"
	"github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer/internal/logger"
)

// ToolChecker verifies an external tool responds to its version flag.
// Implemented by ffmpeg.Extractor and gifski.Encoder.
type ToolChecker interface {
	CheckAvailable(ctx context.Context) (string, error)
}

// History lists persisted runs. Implemented by store.SQLiteStore.
type History interface {
	ListRuns(limit int) ([]*batch.RunRecord, error)
	TotalSavedBytes() (int64, error)
}

// Handler provides HTTP API handlers
type Handler struct {
	manager *batch.Manager
	history History // nil = history endpoints return empty results
	ffmpeg  ToolChecker
	gifski  ToolChecker
	log     logger.Logger

	cfgMu   sync.Mutex // Protects cfg and its file
	cfg     *config.Config
	cfgPath string
}

// NewHandler creates a new API handler
func NewHandler(manager *batch.Manager, history History, ffmpeg, gifski ToolChecker, cfg *config.Config, cfgPath string, log logger.Logger) *Handler {
	return &Handler{
		manager: manager,
		history: history,
		ffmpeg:  ffmpeg,
		gifski:  gifski,
		cfg:     cfg,
		cfgPath: cfgPath,
		log:     log,
	}
}

// response helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Scan handles GET /api/scan?path=...
// It previews what a folder holds without starting anything.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	c, err := classify.Scan(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"videos":       len(c.Videos),
		"images":       len(c.Images),
		"gifs":         len(c.Gifs),
		"image_groups": len(classify.GroupImages(c.Images)),
	})
}

// StartRunRequest is the request body for starting a run.
// Settings, when omitted, default to the saved configuration.
type StartRunRequest struct {
	Mode      int              `json:"mode"`
	InputDir  string           `json:"input_dir"`
	OutputDir string           `json:"output_dir"`
	TestRun   bool             `json:"test_run"`
	Settings  *config.Settings `json:"settings"`
}

// StartRun handles POST /api/runs
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode := batch.Mode(req.Mode)
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode: %d", req.Mode))
		return
	}
	if err := validateFolders(req.InputDir, req.OutputDir); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings := h.currentSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	if err := settings.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.manager.Start(batch.Request{
		Mode:      mode,
		InputDir:  req.InputDir,
		OutputDir: req.OutputDir,
		Settings:  settings,
		TestRun:   req.TestRun,
	})
	if errors.Is(err, batch.ErrRunActive) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.rememberFolders(req.InputDir, req.OutputDir)

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id})
}

// CancelRun handles POST /api/runs/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	cancelled := h.manager.Cancel()
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// ListRuns handles GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}

	resp := map[string]interface{}{
		"active_run_id": h.manager.ActiveRunID(),
		"runs":          []*batch.RunRecord{},
		"total_saved":   int64(0),
	}
	if h.history != nil {
		runs, err := h.history.ListRuns(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		saved, err := h.history.TotalSavedBytes()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if runs != nil {
			resp["runs"] = runs
		}
		resp["total_saved"] = saved
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSettings handles GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.currentSettings())
}

// UpdateSettings handles PUT /api/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s config.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.cfgMu.Lock()
	h.cfg.Settings = s
	err := h.cfg.Save(h.cfgPath)
	h.cfgMu.Unlock()
	if err != nil {
		h.log.Warn("failed to save config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// Tools handles GET /api/tools: reports whether ffmpeg and gifski respond.
func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ffmpeg": toolStatus(ctx, h.ffmpeg),
		"gifski": toolStatus(ctx, h.gifski),
	})
}

func toolStatus(ctx context.Context, t ToolChecker) map[string]interface{} {
	if t == nil {
		return map[string]interface{}{"available": false}
	}
	version, err := t.CheckAvailable(ctx)
	if err != nil {
		return map[string]interface{}{"available": false, "error": err.Error()}
	}
	return map[string]interface{}{"available": true, "version": version}
}

func (h *Handler) currentSettings() config.Settings {
	h.cfgMu.Lock()
	defer h.cfgMu.Unlock()
	return h.cfg.Settings
}

// rememberFolders persists the last used folders so the next session can
// offer them again.
func (h *Handler) rememberFolders(input, output string) {
	h.cfgMu.Lock()
	defer h.cfgMu.Unlock()
	h.cfg.LastInputDir = input
	h.cfg.LastOutputDir = output
	if err := h.cfg.Save(h.cfgPath); err != nil {
		h.log.Warn("failed to save config", "error", err)
	}
}

// validateFolders checks the input folder exists and creates the output
// folder if needed.
func validateFolders(input, output string) error {
	if input == "" {
		return errors.New("input folder is required")
	}
	if output == "" {
		return errors.New("output folder is required")
	}
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("input folder does not exist: %s", input)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path is not a folder: %s", input)
	}
	if err := os.MkdirAll(output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}
	return nil
}

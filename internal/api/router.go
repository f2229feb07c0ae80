package api

import (
	"net/http"

	gifopt "github.com/ReactorcoreGames/Easy-Bulk-GIF-Optimizer"
)

// NewRouter creates a new HTTP router with all API endpoints
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	// Folder preview
	mux.HandleFunc("GET /api/scan", h.Scan)

	// Run management
	mux.HandleFunc("GET /api/runs", h.ListRuns)
	mux.HandleFunc("POST /api/runs", h.StartRun)
	mux.HandleFunc("POST /api/runs/cancel", h.CancelRun)
	mux.HandleFunc("GET /api/runs/stream", h.RunStream)

	// Settings and tools
	mux.HandleFunc("GET /api/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/settings", h.UpdateSettings)
	mux.HandleFunc("GET /api/tools", h.Tools)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"name":    "Easy Bulk GIF Optimizer",
			"version": gifopt.Version,
		})
	})

	return mux
}

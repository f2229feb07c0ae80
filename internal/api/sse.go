package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// RunStream handles GET /api/runs/stream (SSE endpoint)
func (h *Handler) RunStream(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	eventCh := h.manager.Subscribe()
	defer h.manager.Unsubscribe(eventCh)

	// Send initial state
	initialData, _ := json.Marshal(map[string]interface{}{
		"type":          "init",
		"active_run_id": h.manager.ActiveRunID(),
	})
	fmt.Fprintf(w, "data: %s\n\n", initialData)
	flusher.Flush()

	// Stream events
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				continue
			}

			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/geoquest/internal/events"
)

// handleEvents streams a game's notifications as Server-Sent Events. Each
// event is named after its type.
func handleEvents(broker *events.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ch := broker.Subscribe(gameID)
		defer broker.Unsubscribe(gameID, ch)

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				var head struct {
					Type string `json:"type"`
				}
				if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
					head.Type = "message"
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", head.Type, data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/geoquest/internal/events"
	"github.com/playperu/geoquest/internal/geo"
	"github.com/playperu/geoquest/internal/geoquest"
	"github.com/playperu/geoquest/internal/progress"
)

// StreamMessage is one frame sent to a position-stream client.
type StreamMessage struct {
	// Type is "evaluation", "event" or "error".
	Type       string            `json:"type"`
	Evaluation *EvaluateResponse `json:"evaluation,omitempty"`
	Event      json.RawMessage   `json:"event,omitempty"`
	Error      string            `json:"error,omitempty"`
}

const streamMaxLifetime = 4 * time.Hour

// handlePositionStream is the WebSocket flavour of the evaluate endpoint.
// Every {latitude, longitude} frame the client sends is evaluated and
// answered; the game's broker events are pushed in between.
func handlePositionStream(engine *progress.Engine, broker *events.Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, playerID := playerParams(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithTimeout(r.Context(), streamMaxLifetime)
		defer cancel()

		ch := broker.Subscribe(gameID)
		defer broker.Unsubscribe(gameID, ch)

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case data := <-ch:
					if err := wsjson.Write(ctx, conn, StreamMessage{Type: "event", Event: data}); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			var pos geo.Point
			if err := wsjson.Read(ctx, conn, &pos); err != nil {
				logger.Debug("position stream ended", "game_id", gameID, "player_id", playerID, "error", err)
				return
			}

			ev, err := engine.Evaluate(ctx, gameID, playerID, pos)
			var msg StreamMessage
			switch {
			case errors.Is(err, geoquest.ErrInvalid):
				msg = StreamMessage{Type: "error", Error: err.Error()}
			case err != nil:
				logger.Error("stream evaluation failed", "game_id", gameID, "player_id", playerID, "error", err)
				conn.Close(websocket.StatusInternalError, "internal error")
				return
			default:
				resp := toEvaluation(ev)
				msg = StreamMessage{Type: "evaluation", Evaluation: &resp}
			}

			if err := wsjson.Write(ctx, conn, msg); err != nil {
				logger.Debug("position stream write failed", "error", err)
				return
			}
		}
	}
}

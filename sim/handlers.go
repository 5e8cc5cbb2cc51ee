package sim

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// ConnectedMessage is the payload of the first event on every stream.
const ConnectedMessage = "Connected to EEG stream"

// StreamHandler serves the hub as a text/event-stream.
func StreamHandler(h *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		readings, unsubscribe := h.Subscribe()
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusOK)

		if _, err := fmt.Fprintf(w, "event: connected\ndata: %s\n\n", ConnectedMessage); err != nil {
			return
		}
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case reading := <-readings:
				data, err := json.Marshal(reading)
				if err != nil {
					slog.Error("marshal reading", "error", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: eeg\ndata: %s\n\n", data); err != nil {
					slog.Debug("write sse event", "error", err)
					return
				}
				flusher.Flush()
			}
		}
	})
}

// wsFrame is the websocket envelope for one named event.
type wsFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// WSHandler serves the hub over a websocket, one JSON frame per event.
func WSHandler(h *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			slog.Warn("accept websocket", "error", err)
			return
		}
		defer conn.CloseNow()

		readings, unsubscribe := h.Subscribe()
		defer unsubscribe()

		// Reads only detect the peer going away.
		ctx := conn.CloseRead(r.Context())

		if err := wsjson.Write(ctx, conn, wsFrame{Event: "connected", Data: ConnectedMessage}); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case reading := <-readings:
				if err := wsjson.Write(ctx, conn, wsFrame{Event: "eeg", Data: reading}); err != nil {
					slog.Debug("write websocket event", "error", err)
					return
				}
			}
		}
	})
}

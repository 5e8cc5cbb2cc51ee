package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"nhooyr.io/websocket"
)

// Frame is the JSON envelope used on WebSocket connections.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WebSocketTransport reads JSON frames from a WebSocket.
type WebSocketTransport struct {
	HTTPClient *http.Client
	ReadLimit  int64 // 0 keeps the library default
}

// Dial performs the WebSocket handshake.
func (t *WebSocketTransport) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: t.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	if t.ReadLimit > 0 {
		conn.SetReadLimit(t.ReadLimit)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

// Next returns the next frame. A binary or malformed frame is an error, so
// the client drops the connection and redials.
func (c *wsConn) Next(ctx context.Context) (Message, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("read error: %w", err)
	}
	if typ != websocket.MessageText {
		return Message{}, fmt.Errorf("decode frame: unexpected %v message", typ)
	}

	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return Message{}, fmt.Errorf("decode frame: missing event name")
	}
	return Message{Event: f.Event, Data: []byte(f.Data)}, nil
}

func (c *wsConn) Close() error {
	return c.conn.CloseNow()
}

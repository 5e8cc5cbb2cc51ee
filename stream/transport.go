package stream

import (
	"context"
	"fmt"
	"net/url"
)

// Message is one named event as delivered by a transport.
type Message struct {
	Event string
	Data  []byte
}

// Transport opens push connections to the EEG source.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is a single live push connection.
// Next blocks until a message arrives or the connection fails; Close unblocks it.
type Conn interface {
	Next(ctx context.Context) (Message, error)
	Close() error
}

// TransportFor picks the transport matching the URL scheme.
func TransportFor(rawURL string) (Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return &SSETransport{}, nil
	case "ws", "wss":
		return &WebSocketTransport{}, nil
	default:
		return nil, fmt.Errorf("unsupported stream scheme: %q", u.Scheme)
	}
}

package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/openai/openai-go/v3/packages/ssestream"
)

// ErrStreamClosed is returned when the server ends the stream.
var ErrStreamClosed = errors.New("stream closed by server")

// SSETransport reads text/event-stream responses.
type SSETransport struct {
	// HTTPClient must not set a Timeout, it would cut the stream.
	HTTPClient *http.Client
}

// Dial issues the GET request and returns once response headers arrive.
func (t *SSETransport) Dial(ctx context.Context, url string) (Conn, error) {
	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request stream: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("unexpected status: %s", res.Status)
	}

	return &sseConn{dec: ssestream.NewDecoder(res)}, nil
}

type sseConn struct {
	dec  ssestream.Decoder
	once sync.Once
	err  error
}

func (c *sseConn) Next(ctx context.Context) (Message, error) {
	for c.dec.Next() {
		ev := c.dec.Event()
		data := bytes.TrimSuffix(ev.Data, []byte("\n"))
		if ev.Type == "" && len(data) == 0 {
			// Keep-alive
			continue
		}
		name := ev.Type
		if name == "" {
			name = "message"
		}
		return Message{Event: name, Data: bytes.Clone(data)}, nil
	}
	if err := c.dec.Err(); err != nil {
		if ctx.Err() != nil {
			return Message{}, ctx.Err()
		}
		return Message{}, err
	}
	return Message{}, fmt.Errorf("%w: %w", ErrStreamClosed, io.EOF)
}

func (c *sseConn) Close() error {
	c.once.Do(func() {
		c.err = c.dec.Close()
	})
	return c.err
}

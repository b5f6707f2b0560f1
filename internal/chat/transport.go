package chat

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

// transport carries Messages over one client connection. ReadMessage is only
// called by the session reader and WriteMessage only by the session writer.
type transport interface {
	// ReadMessage returns io.EOF when the peer closes cleanly.
	ReadMessage() (Message, error)
	WriteMessage(Message) error
	Close() error
}

// lineConn speaks newline-delimited JSON over a stream connection.
type lineConn struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	enc          *json.Encoder
	writeTimeout time.Duration
}

func newLineConn(conn net.Conn, cfg Config) *lineConn {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, min(4096, cfg.MaxLineBytes)), cfg.MaxLineBytes)

	enc := json.NewEncoder(conn)
	enc.SetEscapeHTML(false)

	return &lineConn{
		conn:         conn,
		scanner:      sc,
		enc:          enc,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (c *lineConn) ReadMessage() (Message, error) {
	for c.scanner.Scan() {
		line := bytes.TrimSpace(c.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return ParseMessage(line)
	}
	if err := c.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Message{}, fmt.Errorf("%w: line exceeds limit", ErrMalformedMessage)
		}
		return Message{}, err
	}
	return Message{}, io.EOF
}

func (c *lineConn) WriteMessage(msg Message) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	// Encode terminates each value with a newline.
	return c.enc.Encode(msg)
}

func (c *lineConn) Close() error { return c.conn.Close() }

// wsConn speaks one JSON message per WebSocket text frame.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSConn(conn *websocket.Conn, cfg Config) *wsConn {
	conn.SetReadLimit(int64(cfg.MaxLineBytes))
	return &wsConn{conn: conn, writeTimeout: cfg.WriteTimeout}
}

func (c *wsConn) ReadMessage() (Message, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Message{}, io.EOF
		}
		if errors.Is(err, websocket.ErrReadLimit) {
			return Message{}, fmt.Errorf("%w: frame exceeds limit", ErrMalformedMessage)
		}
		return Message{}, err
	}
	return ParseMessage(data)
}

func (c *wsConn) WriteMessage(msg Message) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error { return c.conn.Close() }

// checkOrigin returns the upgrader origin policy for the allowed list. A nil
// result keeps gorilla's same-origin default.
func checkOrigin(allowed []string) func(*http.Request) bool {
	switch {
	case len(allowed) == 0:
		return nil
	case slices.Contains(allowed, "*"):
		return func(*http.Request) bool { return true }
	default:
		return func(r *http.Request) bool {
			return slices.Contains(allowed, r.Header.Get("Origin"))
		}
	}
}

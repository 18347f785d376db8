package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/gorilla/websocket"
)

// Stream is the subscriber side of a relay connection.
type Stream struct {
	conn *websocket.Conn
}

// Subscribe dials the relay and performs the handshake under the given name.
func Subscribe(ctx context.Context, url string, name string) (*Stream, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	if err := handshake(conn, name); err != nil {
		conn.Close()
		return nil, err
	}

	return &Stream{conn: conn}, nil
}

// Next blocks until the relay sends the next event.
func (s *Stream) Next() (feed.Event, error) {
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		return feed.Event{}, fmt.Errorf("read: %w", err)
	}

	var ev feed.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		return feed.Event{}, fmt.Errorf("unmarshal: %w", err)
	}

	return ev, nil
}

// Close tells the relay the subscriber is leaving and closes the connection.
func (s *Stream) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	s.conn.WriteMessage(websocket.CloseMessage, msg)

	return s.conn.Close()
}

// =============================================================================

func handshake(conn *websocket.Conn, name string) error {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	if string(msg) != "HELLO" {
		return fmt.Errorf("unexpected message: %s", msg)
	}

	data, err := json.Marshal(Subscriber{Name: name})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	_, msg, err = conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	if !strings.HasPrefix(string(msg), "WELCOME") {
		return fmt.Errorf("unexpected message: %s", msg)
	}

	return nil
}

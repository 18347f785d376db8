package relay

import (
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Subscriber is a websocket client receiving contract events.
type Subscriber struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Conn     *websocket.Conn `json:"-"`
	LastPing time.Time       `json:"-"`
	LastPong time.Time       `json:"-"`
}

// Connection is the liveness view of a subscriber.
type Connection struct {
	Conn     *websocket.Conn
	LastPing time.Time
	LastPong time.Time
}

// busMessage is what gets published on the NATS subject.
type busMessage struct {
	CapID uuid.UUID  `json:"capID"`
	Event feed.Event `json:"event"`
}

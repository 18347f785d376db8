// Package relay fans contract events out to websocket subscribers and to
// the message bus.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/errs"
	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/ardanlabs/waveportal/wave/foundation/web"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
)

// Set of error variables.
var (
	ErrExists    = errors.New("subscriber exists")
	ErrNotExists = errors.New("subscriber doesn't exists")
)

// Subscribers defines the set of behavior for subscriber management.
type Subscribers interface {
	Add(ctx context.Context, sub Subscriber) error
	UpdateLastPing(ctx context.Context, id uuid.UUID) error
	UpdateLastPong(ctx context.Context, id uuid.UUID) (Subscriber, error)
	Remove(ctx context.Context, id uuid.UUID)
	Connections() map[uuid.UUID]Connection
	Retrieve(ctx context.Context, id uuid.UUID) (Subscriber, error)
}

// Config represents the settings for a hub. NATS is optional.
type Config struct {
	Log         *logger.Logger
	Subscribers Subscribers
	NATS        *nats.Conn
	Subject     string
	CapID       uuid.UUID
	PingEvery   time.Duration
	HandshakeIn time.Duration
}

// Hub represents the relay support.
type Hub struct {
	log         *logger.Logger
	subs        Subscribers
	nc          *nats.Conn
	subject     string
	capID       uuid.UUID
	handshakeIn time.Duration
	writeMu     sync.Mutex
	quit        chan struct{}
	wg          sync.WaitGroup
}

// New creates a hub and starts the ping loop.
func New(cfg Config) *Hub {
	pingEvery := cfg.PingEvery
	if pingEvery <= 0 {
		pingEvery = 10 * time.Second
	}

	handshakeIn := cfg.HandshakeIn
	if handshakeIn <= 0 {
		handshakeIn = time.Second
	}

	h := Hub{
		log:         cfg.Log,
		subs:        cfg.Subscribers,
		nc:          cfg.NATS,
		subject:     cfg.Subject,
		capID:       cfg.CapID,
		handshakeIn: handshakeIn,
		quit:        make(chan struct{}),
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.ping(pingEvery)
	}()

	return &h
}

// Shutdown stops the ping loop.
func (h *Hub) Shutdown() {
	close(h.quit)
	h.wg.Wait()
}

// Handshake performs the connection handshake protocol.
func (h *Hub) Handshake(ctx context.Context, w http.ResponseWriter, r *http.Request) (Subscriber, error) {
	var ws websocket.Upgrader
	conn, err := ws.Upgrade(w, r, nil)
	if err != nil {
		return Subscriber{}, errs.Newf(errs.FailedPrecondition, "unable to upgrade to websocket")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("HELLO")); err != nil {
		conn.Close()
		return Subscriber{}, fmt.Errorf("write message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.handshakeIn)
	defer cancel()

	sub := Subscriber{
		Conn:     conn,
		LastPing: time.Now(),
		LastPong: time.Now(),
	}

	msg, err := h.readMessage(ctx, sub)
	if err != nil {
		return Subscriber{}, fmt.Errorf("read message: %w", err)
	}

	if err := json.Unmarshal(msg, &sub); err != nil {
		conn.Close()
		return Subscriber{}, fmt.Errorf("unmarshal message: %w", err)
	}

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	if err := h.subs.Add(ctx, sub); err != nil {
		defer conn.Close()
		if err := conn.WriteMessage(websocket.TextMessage, []byte("Already Connected")); err != nil {
			return Subscriber{}, fmt.Errorf("write message: %w", err)
		}
		return Subscriber{}, fmt.Errorf("add subscriber: %w", err)
	}

	conn.SetPongHandler(h.pong(sub.ID))

	v := fmt.Sprintf("WELCOME %s", sub.Name)
	if err := h.write(conn, websocket.TextMessage, []byte(v)); err != nil {
		h.subs.Remove(ctx, sub.ID)
		conn.Close()
		return Subscriber{}, fmt.Errorf("write message: %w", err)
	}

	h.log.Info(ctx, "relay-handshake", "status", "complete", "id", sub.ID, "name", sub.Name)

	return sub, nil
}

// Listen keeps the subscriber connection open until the client goes away.
// Subscribers don't send anything meaningful, reads only drive the control
// frames.
func (h *Hub) Listen(ctx context.Context, from Subscriber) {
	for {
		msg, err := h.readMessage(ctx, from)
		if err != nil {
			if h.isCriticalError(ctx, err) {
				return
			}
			continue
		}

		h.log.Debug(ctx, "relay-listen", "from", from.ID, "msg", string(msg))
	}
}

// Broadcast sends the event to every subscriber and publishes it on the bus.
func (h *Hub) Broadcast(ev feed.Event) {
	ctx := web.SetTraceID(context.Background(), uuid.New())

	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error(ctx, "relay-broadcast", "status", "marshal", "ERROR", err)
		return
	}

	for id, conn := range h.subs.Connections() {
		if err := h.write(conn.Conn, websocket.TextMessage, data); err != nil {
			h.log.Info(ctx, "relay-broadcast", "status", "failed", "id", id, "ERROR", err)
			h.subs.Remove(ctx, id)
			conn.Conn.Close()
		}
	}

	h.log.Info(ctx, "relay-broadcast", "kind", ev.Kind)

	if err := h.sendToBus(ev); err != nil {
		h.log.Error(ctx, "relay-broadcast", "status", "bus", "ERROR", err)
	}
}

// =============================================================================

func (h *Hub) sendToBus(ev feed.Event) error {
	if h.nc == nil {
		return nil
	}

	data, err := json.Marshal(busMessage{CapID: h.capID, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := h.nc.Publish(h.subject, data); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

func (h *Hub) write(conn *websocket.Conn, messageType int, data []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	return conn.WriteMessage(messageType, data)
}

func (h *Hub) isCriticalError(ctx context.Context, err error) bool {
	switch e := err.(type) {
	case *websocket.CloseError:
		h.log.Info(ctx, "relay-isCriticalError", "status", "client disconnected")
		return true

	case *net.OpError:
		if !e.Temporary() {
			h.log.Info(ctx, "relay-isCriticalError", "status", "client disconnected")
			return true
		}
		return false

	default:
		if errors.Is(err, context.Canceled) {
			h.log.Info(ctx, "relay-isCriticalError", "status", "client canceled")
			return true
		}

		if errors.Is(err, net.ErrClosed) {
			return true
		}

		h.log.Info(ctx, "relay-isCriticalError", "ERROR", err, "TYPE", fmt.Sprintf("%T", err))
		return false
	}
}

func (h *Hub) readMessage(ctx context.Context, sub Subscriber) ([]byte, error) {
	type response struct {
		msg []byte
		err error
	}

	ch := make(chan response, 1)

	go func() {
		_, msg, err := sub.Conn.ReadMessage()
		ch <- response{msg, err}
	}()

	var resp response

	select {
	case <-ctx.Done():
		h.subs.Remove(ctx, sub.ID)
		sub.Conn.Close()
		return nil, ctx.Err()

	case resp = <-ch:
		if resp.err != nil {
			h.subs.Remove(ctx, sub.ID)
			sub.Conn.Close()
			return nil, resp.err
		}
	}

	return resp.msg, nil
}

func (h *Hub) pong(id uuid.UUID) func(appData string) error {
	f := func(appData string) error {
		ctx := web.SetTraceID(context.Background(), uuid.New())

		sub, err := h.subs.UpdateLastPong(ctx, id)
		if err != nil {
			h.log.Info(ctx, "*** PONG ***", "id", id, "ERROR", err)
			return nil
		}

		d := sub.LastPong.Sub(sub.LastPing)
		h.log.Debug(ctx, "*** PONG ***", "id", id, "status", "received", "sub", d.String())

		return nil
	}

	return f
}

func (h *Hub) ping(maxWait time.Duration) {
	ticker := time.NewTicker(maxWait)
	defer ticker.Stop()

	ctx := web.SetTraceID(context.Background(), uuid.New())

	for {
		select {
		case <-ticker.C:
		case <-h.quit:
			return
		}

		h.log.Debug(ctx, "*** PING ***", "status", "started")

		for id, conn := range h.subs.Connections() {
			d := conn.LastPong.Sub(conn.LastPing)
			if d < 0 && -d > maxWait {
				h.log.Info(ctx, "*** PING ***", "id", id, "status", "no pong", "maxWait", maxWait)
				h.subs.Remove(ctx, id)
				conn.Conn.Close()
				continue
			}

			if err := h.write(conn.Conn, websocket.PingMessage, []byte("ping")); err != nil {
				h.log.Info(ctx, "*** PING ***", "status", "failed", "id", id, "ERROR", err)
			}

			if err := h.subs.UpdateLastPing(ctx, id); err != nil {
				h.log.Info(ctx, "*** PING ***", "status", "failed", "id", id, "ERROR", err)
			}
		}

		h.log.Debug(ctx, "*** PING ***", "status", "completed")
	}
}

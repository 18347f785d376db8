// Package clients provides in memory storage of relay subscribers.
package clients

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/relay"
	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/google/uuid"
)

// Clients provides subscriber storage management.
type Clients struct {
	log  *logger.Logger
	subs map[uuid.UUID]relay.Subscriber
	mu   sync.RWMutex
}

// New creates a new subscriber storage.
func New(log *logger.Logger) *Clients {
	c := Clients{
		log:  log,
		subs: make(map[uuid.UUID]relay.Subscriber),
	}

	return &c
}

// Add adds a new subscriber to the storage.
func (c *Clients) Add(ctx context.Context, sub relay.Subscriber) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.subs[sub.ID]; exists {
		return relay.ErrExists
	}

	c.subs[sub.ID] = sub

	c.log.Info(ctx, "relay-addsub", "name", sub.Name, "id", sub.ID)

	return nil
}

// UpdateLastPing updates a subscriber's ping date/time.
func (c *Clients) UpdateLastPing(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, exists := c.subs[id]
	if !exists {
		return relay.ErrNotExists
	}

	sub.LastPing = time.Now()
	c.subs[id] = sub

	return nil
}

// UpdateLastPong updates a subscriber's pong date/time.
func (c *Clients) UpdateLastPong(ctx context.Context, id uuid.UUID) (relay.Subscriber, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, exists := c.subs[id]
	if !exists {
		return relay.Subscriber{}, relay.ErrNotExists
	}

	sub.LastPong = time.Now()
	c.subs[id] = sub

	return sub, nil
}

// Remove removes a subscriber from the storage.
func (c *Clients) Remove(ctx context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, exists := c.subs[id]
	if !exists {
		c.log.Debug(ctx, "relay-removesub", "id", id, "status", "does not exists")
		return
	}

	delete(c.subs, id)

	c.log.Info(ctx, "relay-removesub", "name", sub.Name, "id", sub.ID)
}

// Connections returns all the known subscribers with their connections.
func (c *Clients) Connections() map[uuid.UUID]relay.Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m := make(map[uuid.UUID]relay.Connection, len(c.subs))
	for id, sub := range c.subs {
		m[id] = relay.Connection{
			Conn:     sub.Conn,
			LastPing: sub.LastPing,
			LastPong: sub.LastPong,
		}
	}

	return m
}

// Retrieve retrieves a subscriber from the storage.
func (c *Clients) Retrieve(ctx context.Context, id uuid.UUID) (relay.Subscriber, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sub, exists := c.subs[id]
	if !exists {
		return relay.Subscriber{}, relay.ErrNotExists
	}

	return sub, nil
}

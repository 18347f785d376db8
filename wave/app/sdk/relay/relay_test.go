package relay_test

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ardanlabs/waveportal/wave/app/sdk/relay"
	"github.com/ardanlabs/waveportal/wave/app/sdk/relay/clients"
	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHub(t *testing.T) (*relay.Hub, *clients.Clients, string) {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)
	subs := clients.New(log)

	hub := relay.New(relay.Config{
		Log:         log,
		Subscribers: subs,
	})
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, err := hub.Handshake(r.Context(), w, r)
		if err != nil {
			return
		}
		defer sub.Conn.Close()

		hub.Listen(r.Context(), sub)
	}))
	t.Cleanup(srv.Close)

	return hub, subs, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, name string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "HELLO", string(msg))

	require.NoError(t, conn.WriteJSON(map[string]string{"name": name}))

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "WELCOME "+name, string(msg))

	return conn
}

func TestHandshake(t *testing.T) {
	_, subs, url := newHub(t)

	dial(t, url, "bill")

	assert.Len(t, subs.Connections(), 1)
}

func TestBroadcast(t *testing.T) {
	hub, _, url := newHub(t)

	c1 := dial(t, url, "bill")
	c2 := dial(t, url, "ale")

	w := feed.Wave{
		Address:   common.HexToAddress("0x1234567890123456789012345678901234567890"),
		Timestamp: time.Unix(1000, 0).UTC(),
		Message:   "hello",
	}

	hub.Broadcast(feed.Event{Kind: feed.EventNewWave, Wave: &w})

	for _, conn := range []*websocket.Conn{c1, c2} {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev feed.Event
		require.NoError(t, json.Unmarshal(msg, &ev))

		assert.Equal(t, feed.EventNewWave, ev.Kind)
		require.NotNil(t, ev.Wave)
		assert.Equal(t, w.Address, ev.Wave.Address)
		assert.Equal(t, "hello", ev.Wave.Message)
		assert.True(t, w.Timestamp.Equal(ev.Wave.Timestamp))
		assert.Nil(t, ev.Winner)
	}
}

func TestHandshakeBadHello(t *testing.T) {
	_, subs, url := newHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	assert.Empty(t, subs.Connections())
}

func TestDisconnectRemoves(t *testing.T) {
	_, subs, url := newHub(t)

	conn := dial(t, url, "bill")
	require.Len(t, subs.Connections(), 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	assert.Eventually(t, func() bool {
		return len(subs.Connections()) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSubscribe(t *testing.T) {
	hub, subs, url := newHub(t)

	stream, err := relay.Subscribe(context.Background(), url, "watcher")
	require.NoError(t, err)
	defer stream.Close()

	require.Len(t, subs.Connections(), 1)

	winner := feed.Winner{
		From:      common.HexToAddress("0x1234567890123456789012345678901234567890"),
		Timestamp: time.Unix(1000, 0).UTC(),
		Amount:    big.NewInt(100_000_000_000_000),
	}

	hub.Broadcast(feed.Event{Kind: feed.EventNewWinner, Winner: &winner})

	ev, err := stream.Next()
	require.NoError(t, err)

	assert.Equal(t, feed.EventNewWinner, ev.Kind)
	require.NotNil(t, ev.Winner)
	assert.Equal(t, winner.From, ev.Winner.From)
	assert.Equal(t, 0, winner.Amount.Cmp(ev.Winner.Amount))
}

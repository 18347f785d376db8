// Package relayapp provides the application layer for the relay service.
package relayapp

import (
	"context"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ardanlabs/waveportal/wave/app/sdk/errs"
	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ardanlabs/waveportal/wave/app/sdk/relay"
	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/ardanlabs/waveportal/wave/foundation/web"
)

// WaveSource provides the current wave list.
type WaveSource interface {
	Snapshot() feed.Snapshot
}

// Counter provides the number of waves the contract has received.
type Counter interface {
	TotalWaves(ctx context.Context) (*big.Int, error)
}

type app struct {
	log     *logger.Logger
	hub     *relay.Hub
	waves   WaveSource
	counter Counter
}

func newApp(log *logger.Logger, hub *relay.Hub, waves WaveSource, counter Counter) *app {
	return &app{
		log:     log,
		hub:     hub,
		waves:   waves,
		counter: counter,
	}
}

func (a *app) connect(ctx context.Context, r *http.Request) web.Encoder {
	sub, err := a.hub.Handshake(ctx, web.GetWriter(ctx), r)
	if err != nil {
		return errs.Newf(errs.FailedPrecondition, "handshake failed: %s", err)
	}
	defer sub.Conn.Close()

	a.hub.Listen(ctx, sub)

	return web.NewNoResponse()
}

func (a *app) list(ctx context.Context, r *http.Request) web.Encoder {
	ws := a.waves.Snapshot().Waves

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return errs.Newf(errs.InvalidArgument, "invalid limit %q", v)
		}

		if limit < len(ws) {
			ws = ws[:limit]
		}
	}

	return toWaves(ws)
}

func (a *app) total(ctx context.Context, r *http.Request) web.Encoder {
	n, err := a.counter.TotalWaves(ctx)
	if err != nil {
		return errs.New(errs.Unavailable, err)
	}

	return total{Total: n.String()}
}

func (a *app) liveness(ctx context.Context, r *http.Request) web.Encoder {
	return status{Status: "up"}
}

// Package mux provides support to bind domain level routes
// to the application mux.
package mux

import (
	"context"
	"net/http"

	"github.com/ardanlabs/waveportal/wave/app/domain/relayapp"
	"github.com/ardanlabs/waveportal/wave/app/sdk/mid"
	"github.com/ardanlabs/waveportal/wave/app/sdk/relay"
	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/ardanlabs/waveportal/wave/foundation/web"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log     *logger.Logger
	Hub     *relay.Hub
	Waves   relayapp.WaveSource
	Counter relayapp.Counter
}

// WebAPI constructs a http.Handler with all application routes bound.
func WebAPI(cfg Config) http.Handler {
	logger := func(ctx context.Context, msg string, args ...any) {
		cfg.Log.Info(ctx, msg, args...)
	}

	app := web.NewApp(
		logger,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Panics(),
	)

	relayapp.Routes(app, relayapp.Config{
		Log:     cfg.Log,
		Hub:     cfg.Hub,
		Waves:   cfg.Waves,
		Counter: cfg.Counter,
	})

	return app
}

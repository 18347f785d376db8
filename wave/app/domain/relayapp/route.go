package relayapp

import (
	"net/http"

	"github.com/ardanlabs/waveportal/wave/app/sdk/relay"
	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/ardanlabs/waveportal/wave/foundation/web"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log     *logger.Logger
	Hub     *relay.Hub
	Waves   WaveSource
	Counter Counter
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	api := newApp(cfg.Log, cfg.Hub, cfg.Waves, cfg.Counter)

	app.HandlerFunc(http.MethodGet, "", "/connect", api.connect)
	app.HandlerFunc(http.MethodGet, "", "/waves", api.list)
	app.HandlerFunc(http.MethodGet, "", "/waves/total", api.total)
	app.HandlerFunc(http.MethodGet, "", "/liveness", api.liveness)
}

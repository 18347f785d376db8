package relayapp

import (
	"encoding/json"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
)

type status struct {
	Status string `json:"status"`
}

// Encode implements the encoder interface.
func (app status) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

type total struct {
	Total string `json:"total"`
}

// Encode implements the encoder interface.
func (app total) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

// Wave is a wave as served over the wire.
type Wave struct {
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

type waves []Wave

// Encode implements the encoder interface.
func (app waves) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

func toWaves(ws []feed.Wave) waves {
	out := make(waves, len(ws))
	for i, w := range ws {
		out[i] = Wave{
			Address:   w.Address.Hex(),
			Timestamp: w.Timestamp,
			Message:   w.Message,
		}
	}

	return out
}

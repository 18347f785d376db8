package feed

import (
	"math/big"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/contract"
	"github.com/ethereum/go-ethereum/common"
)

// Wave is a wave in display shape.
type Wave struct {
	Address   common.Address `json:"address"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
}

// Winner is a payout reported by the contract.
type Winner struct {
	From      common.Address `json:"from"`
	Timestamp time.Time      `json:"timestamp"`
	Amount    *big.Int       `json:"amount"`
}

// Snapshot is a copy of the feed state.
type Snapshot struct {
	Account      common.Address
	Waves        []Wave
	WinnerAmount string
}

// EventKind identifies what a feed event carries.
type EventKind string

// Set of event kinds.
const (
	EventNewWave   EventKind = "new_wave"
	EventNewWinner EventKind = "new_winner"
)

// Event is a live contract event after decoding.
type Event struct {
	Kind   EventKind `json:"kind"`
	Wave   *Wave     `json:"wave,omitempty"`
	Winner *Winner   `json:"winner,omitempty"`
}

// =============================================================================

func toWave(from common.Address, timestamp *big.Int, message string) Wave {
	return Wave{
		Address:   from,
		Timestamp: toTime(timestamp),
		Message:   message,
	}
}

func toTime(seconds *big.Int) time.Time {
	if seconds == nil {
		return time.Unix(0, 0)
	}

	return time.Unix(seconds.Int64(), 0)
}

// FromRecords maps contract records to display waves, keeping their order.
func FromRecords(records []contract.Record) []Wave {
	waves := make([]Wave, len(records))
	for i, r := range records {
		waves[i] = toWave(r.Waver, r.Timestamp, r.Message)
	}

	return waves
}

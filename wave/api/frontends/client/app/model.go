package app

import (
	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ethereum/go-ethereum/common"
)

// State represents everything the UI renders.
type State struct {
	WalletAvailable bool
	Account         common.Address
	Loading         bool
	Message         string
	Waves           []feed.Wave
	WinnerAmount    string
}

// Connected reports whether an account is connected.
func (s State) Connected() bool {
	return s.Account != (common.Address{})
}

// CanWave reports whether the send action is enabled.
func (s State) CanWave() bool {
	return s.WalletAvailable && s.Connected() && !s.Loading
}

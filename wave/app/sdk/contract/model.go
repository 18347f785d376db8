package contract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Record is a wave as stored by the contract.
type Record struct {
	Waver     common.Address
	Message   string
	Timestamp *big.Int
}

// NewWave is emitted for every accepted wave.
type NewWave struct {
	From      common.Address
	Timestamp *big.Int
	Message   string
	Raw       types.Log
}

// NewWinner is emitted when a wave was picked for a payout.
type NewWinner struct {
	From      common.Address
	Timestamp *big.Int
	Amount    *big.Int
	Raw       types.Log
}

package format_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/format"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestAddress(t *testing.T) {
	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")

	assert.Equal(t, "0x123...7890", format.Address(addr))
	assert.Equal(t, "0x000...0000", format.Address(common.Address{}))
}

func TestDate(t *testing.T) {
	ts := time.Date(2022, time.January, 5, 9, 7, 0, 0, time.UTC)

	assert.Equal(t, "01/05/2022 09:07 hs.", format.Date(ts))
}

func TestEther(t *testing.T) {
	tests := []struct {
		name string
		wei  *big.Int
		exp  string
	}{
		{"nil", nil, "0.0"},
		{"zero", big.NewInt(0), "0.0"},
		{"one", big.NewInt(1_000_000_000_000_000_000), "1.0"},
		{"fraction", big.NewInt(100_000_000_000_000), "0.0001"},
		{"mixed", big.NewInt(1_500_000_000_000_000_000), "1.5"},
		{"one wei", big.NewInt(1), "0.000000000000000001"},
		{"negative", big.NewInt(-500_000_000_000_000_000), "-0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.exp, format.Ether(tt.wei))
		})
	}
}

func TestExplorerLink(t *testing.T) {
	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")
	exp := "https://rinkeby.etherscan.io/address/0x1234567890123456789012345678901234567890"

	tests := []struct {
		name string
		base string
	}{
		{"default", format.DefaultExplorerURL},
		{"root", "https://rinkeby.etherscan.io"},
		{"rootSlash", "https://rinkeby.etherscan.io/"},
		{"addressNoSlash", "https://rinkeby.etherscan.io/address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, exp, format.ExplorerLink(tt.base, addr))
		})
	}
}

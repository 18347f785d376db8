// Package format provides the string formatting used to display waves.
package format

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

const (
	addressHead = 5
	addressTail = 4
	etherDigits = 18
	dateLayout  = "01/02/2006 15:04"
)

// Address shortens an address to its first five and last four characters.
func Address(addr common.Address) string {
	hex := addr.Hex()
	return hex[:addressHead] + "..." + hex[len(hex)-addressTail:]
}

// Date renders the timestamp in the month/day/year 24 hour clock layout
// using the location already set on the value.
func Date(t time.Time) string {
	return t.Format(dateLayout) + " hs."
}

// Ether converts an amount of wei into a decimal ether string. There is
// always at least one fractional digit, so one ether renders as "1.0".
func Ether(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}

	v := new(big.Int).Abs(wei)
	whole, frac := new(big.Int).QuoRem(v, big.NewInt(params.Ether), new(big.Int))

	fs := frac.String()
	if len(fs) < etherDigits {
		fs = strings.Repeat("0", etherDigits-len(fs)) + fs
	}

	fs = strings.TrimRight(fs, "0")
	if fs == "" {
		fs = "0"
	}

	s := whole.String() + "." + fs
	if wei.Sign() < 0 {
		s = "-" + s
	}

	return s
}

// DefaultExplorerURL is the address page prefix of the block explorer.
const DefaultExplorerURL = "https://rinkeby.etherscan.io/address/"

// ExplorerLink returns the block explorer page for the address. The base can
// be the explorer root or its address page prefix.
func ExplorerLink(baseURL string, addr common.Address) string {
	base := strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(base, "/address") {
		base += "/address"
	}

	return base + "/" + addr.Hex()
}

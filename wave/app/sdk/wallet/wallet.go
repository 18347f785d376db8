// Package wallet provides the wallet providers a client can connect with.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

// Set of supported provider kinds.
const (
	KindKeyFile  = "keyfile"
	KindKeyStore = "keystore"
)

// Set of error variables.
var (
	ErrNotAuthorized = errors.New("account not authorized")
	ErrNoAccounts    = errors.New("wallet has no accounts")
)

// Provider represents the wallet a user connects to the application.
type Provider interface {
	// Accounts returns the accounts already authorized, without any prompt.
	Accounts(ctx context.Context) ([]common.Address, error)

	// RequestAccounts asks the wallet for access and returns the accounts
	// that were authorized.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Transactor returns a signer for transactions sent by the account.
	Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error)

	// Disconnect revokes the authorization of every account.
	Disconnect(ctx context.Context) error
}

// Detect looks for a wallet of the specified kind at path. A false return
// means there is no wallet installed.
func Detect(kind string, path string, passphrase string) (Provider, bool, error) {
	switch kind {
	case KindKeyFile, KindKeyStore:
	default:
		return nil, false, fmt.Errorf("unknown wallet kind %q", kind)
	}

	if path == "" {
		return nil, false, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, false, nil
	}

	switch kind {
	case KindKeyStore:
		ks := keystore.NewKeyStore(path, keystore.StandardScryptN, keystore.StandardScryptP)
		if len(ks.Accounts()) == 0 {
			return nil, false, nil
		}
		return NewKeyStore(ks, passphrase), true, nil

	default:
		return NewKeyFile(path), true, nil
	}
}

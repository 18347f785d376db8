package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

// KeyStore is a wallet backed by an encrypted go-ethereum keystore. Access is
// granted by unlocking the first account with the passphrase.
type KeyStore struct {
	ks         *keystore.KeyStore
	passphrase string
	mu         sync.Mutex
	unlocked   []common.Address
}

// NewKeyStore constructs a keystore wallet.
func NewKeyStore(ks *keystore.KeyStore, passphrase string) *KeyStore {
	return &KeyStore{
		ks:         ks,
		passphrase: passphrase,
	}
}

// Accounts implements the Provider interface.
func (k *KeyStore) Accounts(ctx context.Context) ([]common.Address, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	accts := make([]common.Address, len(k.unlocked))
	copy(accts, k.unlocked)

	return accts, nil
}

// RequestAccounts implements the Provider interface.
func (k *KeyStore) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	all := k.ks.Accounts()
	if len(all) == 0 {
		return nil, ErrNoAccounts
	}

	acct := all[0]

	if err := k.ks.Unlock(acct, k.passphrase); err != nil {
		return nil, fmt.Errorf("unlock %s: %w", acct.Address.Hex(), err)
	}

	k.unlocked = []common.Address{acct.Address}

	return []common.Address{acct.Address}, nil
}

// Transactor implements the Provider interface.
func (k *KeyStore) Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.isUnlocked(account) {
		return nil, fmt.Errorf("transactor: %s: %w", account.Hex(), ErrNotAuthorized)
	}

	acct, err := k.ks.Find(accounts.Account{Address: account})
	if err != nil {
		return nil, fmt.Errorf("transactor: find: %w", err)
	}

	opts, err := bind.NewKeyStoreTransactorWithChainID(k.ks, acct, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}

	return opts, nil
}

// Disconnect implements the Provider interface.
func (k *KeyStore) Disconnect(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, addr := range k.unlocked {
		if err := k.ks.Lock(addr); err != nil {
			return fmt.Errorf("disconnect: lock %s: %w", addr.Hex(), err)
		}
	}

	k.unlocked = nil

	return nil
}

func (k *KeyStore) isUnlocked(account common.Address) bool {
	for _, addr := range k.unlocked {
		if addr == account {
			return true
		}
	}

	return false
}

package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	keyFileName  = "key.ecdsa"
	authFileName = "authorized"
)

// KeyFile is a wallet backed by a single raw ECDSA key on disk. The account
// is authorized once RequestAccounts has been called and stays authorized
// across runs until Disconnect.
type KeyFile struct {
	path string
	mu   sync.Mutex
	key  *ecdsa.PrivateKey
}

// NewKeyFile constructs a key file wallet rooted at path.
func NewKeyFile(path string) *KeyFile {
	return &KeyFile{
		path: path,
	}
}

// Accounts implements the Provider interface.
func (kf *KeyFile) Accounts(ctx context.Context) ([]common.Address, error) {
	kf.mu.Lock()
	defer kf.mu.Unlock()

	if _, err := os.Stat(kf.authFile()); err != nil {
		return []common.Address{}, nil
	}

	key, err := kf.loadKey()
	if err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}

	return []common.Address{crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// RequestAccounts implements the Provider interface. A key is generated the
// first time access is requested.
func (kf *KeyFile) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	kf.mu.Lock()
	defer kf.mu.Unlock()

	os.MkdirAll(kf.path, os.ModePerm)

	var key *ecdsa.PrivateKey

	_, err := os.Stat(kf.keyFile())
	switch {
	case err == nil:
		key, err = kf.loadKey()

	case errors.Is(err, fs.ErrNotExist):
		key, err = kf.createKey()

	default:
		err = fmt.Errorf("stat key: %w", err)
	}

	if err != nil {
		return nil, fmt.Errorf("request accounts: %w", err)
	}

	addr := crypto.PubkeyToAddress(key.PublicKey)

	if err := os.WriteFile(kf.authFile(), []byte(addr.Hex()), 0600); err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}

	return []common.Address{addr}, nil
}

// Transactor implements the Provider interface.
func (kf *KeyFile) Transactor(ctx context.Context, account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	kf.mu.Lock()
	defer kf.mu.Unlock()

	if _, err := os.Stat(kf.authFile()); err != nil {
		return nil, ErrNotAuthorized
	}

	key, err := kf.loadKey()
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}

	if crypto.PubkeyToAddress(key.PublicKey) != account {
		return nil, fmt.Errorf("transactor: %s: %w", account.Hex(), ErrNotAuthorized)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}

	return opts, nil
}

// Disconnect implements the Provider interface.
func (kf *KeyFile) Disconnect(ctx context.Context) error {
	kf.mu.Lock()
	defer kf.mu.Unlock()

	if err := os.Remove(kf.authFile()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disconnect: %w", err)
	}

	return nil
}

// KeyPath returns the location of the raw key on disk.
func (kf *KeyFile) KeyPath() string {
	return kf.keyFile()
}

// =============================================================================

func (kf *KeyFile) keyFile() string {
	return filepath.Join(kf.path, keyFileName)
}

func (kf *KeyFile) authFile() string {
	return filepath.Join(kf.path, authFileName)
}

func (kf *KeyFile) createKey() (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generateKey: %w", err)
	}

	if err := crypto.SaveECDSA(kf.keyFile(), privateKey); err != nil {
		return nil, fmt.Errorf("saveECDSA: %w", err)
	}

	kf.key = privateKey

	return privateKey, nil
}

func (kf *KeyFile) loadKey() (*ecdsa.PrivateKey, error) {
	if kf.key != nil {
		return kf.key, nil
	}

	privateKey, err := crypto.LoadECDSA(kf.keyFile())
	if err != nil {
		return nil, fmt.Errorf("loadECDSA: %w", err)
	}

	kf.key = privateKey

	return privateKey, nil
}

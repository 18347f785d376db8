package wallet_test

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/waveportal/wave/app/sdk/wallet"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	dir := t.TempDir()

	_, ok, err := wallet.Detect(wallet.KindKeyFile, filepath.Join(dir, "missing"), "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = wallet.Detect(wallet.KindKeyFile, "", "")
	require.NoError(t, err)
	assert.False(t, ok)

	p, ok, err := wallet.Detect(wallet.KindKeyFile, dir, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, p)

	_, ok, err = wallet.Detect(wallet.KindKeyStore, dir, "")
	require.NoError(t, err)
	assert.False(t, ok, "empty keystore is not a wallet")

	_, _, err = wallet.Detect("metamask", dir, "")
	assert.Error(t, err)
}

func TestKeyFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kf := wallet.NewKeyFile(dir)

	accts, err := kf.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accts)

	_, err = kf.Transactor(ctx, common.Address{}, big.NewInt(1))
	assert.ErrorIs(t, err, wallet.ErrNotAuthorized)

	requested, err := kf.RequestAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, requested, 1)

	accts, err = kf.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, requested, accts)

	// A new provider over the same directory remembers the authorization.
	again, err := wallet.NewKeyFile(dir).Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, requested, again)

	opts, err := kf.Transactor(ctx, requested[0], big.NewInt(11155111))
	require.NoError(t, err)
	assert.Equal(t, requested[0], opts.From)

	_, err = kf.Transactor(ctx, common.HexToAddress("0x1"), big.NewInt(1))
	assert.ErrorIs(t, err, wallet.ErrNotAuthorized)

	require.NoError(t, kf.Disconnect(ctx))

	accts, err = kf.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accts)

	reconnected, err := kf.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, requested, reconnected, "the key is reused")
}

func TestKeyFileUnreadableKeyPath(t *testing.T) {
	dir := t.TempDir()

	// A regular file where the wallet directory should be makes the key
	// path unreachable without it being missing.
	path := filepath.Join(dir, "wallet")
	require.NoError(t, os.WriteFile(path, []byte("not a directory"), 0600))

	_, err := wallet.NewKeyFile(path).RequestAccounts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat key")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not a directory", string(data))
}

func TestKeyStore(t *testing.T) {
	ctx := context.Background()

	ks := keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)
	acct, err := ks.NewAccount("secret")
	require.NoError(t, err)

	bad := wallet.NewKeyStore(ks, "wrong")
	_, err = bad.RequestAccounts(ctx)
	assert.Error(t, err)

	k := wallet.NewKeyStore(ks, "secret")

	accts, err := k.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accts)

	accts, err = k.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{acct.Address}, accts)

	opts, err := k.Transactor(ctx, acct.Address, big.NewInt(1337))
	require.NoError(t, err)
	assert.Equal(t, acct.Address, opts.From)

	require.NoError(t, k.Disconnect(ctx))

	accts, err = k.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accts)

	_, err = k.Transactor(ctx, acct.Address, big.NewInt(1337))
	assert.ErrorIs(t, err, wallet.ErrNotAuthorized)
}

func TestKeyStoreEmpty(t *testing.T) {
	ks := keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)

	_, err := wallet.NewKeyStore(ks, "").RequestAccounts(context.Background())
	assert.ErrorIs(t, err, wallet.ErrNoAccounts)
}

package contract_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/contract"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func TestGetAllWaves(t *testing.T) {
	b := newBackend(t)

	out, err := b.abi.Methods["getAllWaves"].Outputs.Pack([]contract.Record{
		{Waver: alice, Message: "gm", Timestamp: big.NewInt(100)},
		{Waver: bob, Message: "gn", Timestamp: big.NewInt(200)},
	})
	require.NoError(t, err)
	b.outputs["getAllWaves"] = out

	wp := newPortal(t, b)

	records, err := wp.GetAllWaves(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, alice, records[0].Waver)
	assert.Equal(t, "gm", records[0].Message)
	assert.Equal(t, int64(100), records[0].Timestamp.Int64())
	assert.Equal(t, bob, records[1].Waver)
	assert.Equal(t, "gn", records[1].Message)
	assert.Equal(t, int64(200), records[1].Timestamp.Int64())
}

func TestGetAllWavesEmpty(t *testing.T) {
	b := newBackend(t)

	out, err := b.abi.Methods["getAllWaves"].Outputs.Pack([]contract.Record{})
	require.NoError(t, err)
	b.outputs["getAllWaves"] = out

	records, err := newPortal(t, b).GetAllWaves(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetAllWavesNoContract(t *testing.T) {
	b := newBackend(t)

	_, err := newPortal(t, b).GetAllWaves(context.Background())
	assert.ErrorIs(t, err, bind.ErrNoCode)
}

func TestTotalWaves(t *testing.T) {
	b := newBackend(t)

	out, err := b.abi.Methods["getTotalWaves"].Outputs.Pack(big.NewInt(42))
	require.NoError(t, err)
	b.outputs["getTotalWaves"] = out

	total, err := newPortal(t, b).TotalWaves(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), total.Int64())
}

func TestWave(t *testing.T) {
	b := newBackend(t)
	wp := newPortal(t, b)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(1337))
	require.NoError(t, err)
	opts.GasPrice = big.NewInt(1)
	opts.GasLimit = contract.DefaultGasLimit

	tx, err := wp.Wave(context.Background(), opts, "hello")
	require.NoError(t, err)

	sent := b.sentTxs()
	require.Len(t, sent, 1)
	assert.Equal(t, tx.Hash(), sent[0].Hash())
	assert.Equal(t, wp.Address(), *tx.To())
	assert.Equal(t, uint64(contract.DefaultGasLimit), tx.Gas())

	method := b.abi.Methods["wave"]
	assert.Equal(t, method.ID, tx.Data()[:4])

	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, []any{"hello"}, args)
}

func TestWaitMined(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, Gas: 21000, GasPrice: big.NewInt(1)})

	b := newBackend(t)
	b.receipt = &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}

	receipt, err := newPortal(t, b).WaitMined(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), receipt.TxHash)
}

func TestWaitMinedReverted(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 2, Gas: 21000, GasPrice: big.NewInt(1)})

	b := newBackend(t)
	b.receipt = &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: tx.Hash()}

	receipt, err := newPortal(t, b).WaitMined(context.Background(), tx)
	assert.ErrorIs(t, err, contract.ErrTxFailed)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
}

func TestWatchNewWave(t *testing.T) {
	b := newBackend(t)
	wp := newPortal(t, b)

	sink := make(chan *contract.NewWave, 1)
	sub, err := wp.WatchNewWave(context.Background(), sink, alice)
	require.NoError(t, err)

	query := b.query("NewWave")
	require.Len(t, query.Topics, 2)
	assert.Equal(t, []common.Address{wp.Address()}, query.Addresses)
	assert.Equal(t, []common.Hash{common.BytesToHash(alice.Bytes())}, query.Topics[1])

	b.send(t, "NewWave", buildLog(t, "NewWave", alice, big.NewInt(1_650_000_000), "gm"))

	select {
	case ev := <-sink:
		assert.Equal(t, alice, ev.From)
		assert.Equal(t, int64(1_650_000_000), ev.Timestamp.Int64())
		assert.Equal(t, "gm", ev.Message)
	case <-time.After(time.Second):
		t.Fatal("no NewWave delivered")
	}

	sub.Unsubscribe()
	assert.Eventually(t, b.unsubscribed, time.Second, 5*time.Millisecond)
}

func TestWatchNewWinner(t *testing.T) {
	b := newBackend(t)
	wp := newPortal(t, b)

	sink := make(chan *contract.NewWinner, 1)
	sub, err := wp.WatchNewWinner(context.Background(), sink)
	require.NoError(t, err)

	query := b.query("NewWinner")
	assert.Len(t, query.Topics, 1, "no sender filter")

	amount := big.NewInt(100_000_000_000_000)
	b.send(t, "NewWinner", buildLog(t, "NewWinner", bob, big.NewInt(1_650_000_100), amount))

	select {
	case ev := <-sink:
		assert.Equal(t, bob, ev.From)
		assert.Equal(t, 0, amount.Cmp(ev.Amount))
	case <-time.After(time.Second):
		t.Fatal("no NewWinner delivered")
	}

	sub.Unsubscribe()
	assert.Eventually(t, b.unsubscribed, time.Second, 5*time.Millisecond)
}

func TestWatchUndecodableLog(t *testing.T) {
	b := newBackend(t)
	wp := newPortal(t, b)

	sink := make(chan *contract.NewWave, 1)
	sub, err := wp.WatchNewWave(context.Background(), sink)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	b.send(t, "NewWave", buildLog(t, "NewWinner", bob, big.NewInt(1), big.NewInt(1)))

	select {
	case err := <-sub.Err():
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscription kept running")
	}

	assert.Eventually(t, b.unsubscribed, time.Second, 5*time.Millisecond)
	assert.Empty(t, sink)
}

// =============================================================================

type backend struct {
	contract.Backend

	abi     abi.ABI
	outputs map[string][]byte
	receipt *types.Receipt

	mu         sync.Mutex
	queries    map[string]ethereum.FilterQuery
	logs       map[string]chan<- types.Log
	sent       []*types.Transaction
	subscribed int
	unsubCount int
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	parsed, err := contract.ABI()
	require.NoError(t, err)

	return &backend{
		abi:     parsed,
		outputs: make(map[string][]byte),
		queries: make(map[string]ethereum.FilterQuery),
		logs:    make(map[string]chan<- types.Log),
	}
}

func newPortal(t *testing.T, b *backend) *contract.WavePortal {
	t.Helper()

	wp, err := contract.New(common.HexToAddress(contract.DefaultAddress), b)
	require.NoError(t, err)

	return wp
}

func (b *backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	method, err := b.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}

	return b.outputs[method.Name], nil
}

func (b *backend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (b *backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}

func (b *backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sent = append(b.sent, tx)

	return nil
}

func (b *backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if b.receipt == nil || b.receipt.TxHash != txHash {
		return nil, ethereum.NotFound
	}

	return b.receipt, nil
}

func (b *backend) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	ev, err := b.abi.EventByID(query.Topics[0][0])
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.queries[ev.Name] = query
	b.logs[ev.Name] = ch
	b.subscribed++

	sub := event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit

		b.mu.Lock()
		b.unsubCount++
		b.mu.Unlock()

		return nil
	})

	return sub, nil
}

func (b *backend) query(name string) ethereum.FilterQuery {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.queries[name]
}

func (b *backend) send(t *testing.T, name string, log types.Log) {
	t.Helper()

	b.mu.Lock()
	ch, exists := b.logs[name]
	b.mu.Unlock()

	require.True(t, exists, "no subscription for %s", name)
	ch <- log
}

func (b *backend) sentTxs() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]*types.Transaction(nil), b.sent...)
}

func (b *backend) unsubscribed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.subscribed > 0 && b.unsubCount == b.subscribed
}

// Package contract provides the binding to the WavePortal contract.
package contract

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// DefaultAddress is where the WavePortal contract is deployed.
const DefaultAddress = "0xc9cba0069E818c6D0A82DB4d0B70f0E480Ddb578"

// DefaultGasLimit is the gas limit used when sending a wave.
const DefaultGasLimit = 300_000

//go:embed waveportal.abi.json
var abiJSON string

// ErrTxFailed is returned when a mined transaction was reverted.
var ErrTxFailed = errors.New("transaction failed")

// Backend is the set of chain behavior the binding needs. An *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// WavePortal is a signer agnostic handle to a deployed WavePortal contract.
type WavePortal struct {
	address  common.Address
	abi      abi.ABI
	backend  Backend
	contract *bind.BoundContract
}

// New binds to the contract at the specified address.
func New(address common.Address, backend Backend) (*WavePortal, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, err
	}

	wp := WavePortal{
		address:  address,
		abi:      parsed,
		backend:  backend,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}

	return &wp, nil
}

// ABI returns the parsed contract interface.
func ABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi: %w", err)
	}

	return parsed, nil
}

// Address returns the contract address.
func (wp *WavePortal) Address() common.Address {
	return wp.address
}

// Wave submits the message to the contract. The transaction is signed by the
// transactor in opts.
func (wp *WavePortal) Wave(ctx context.Context, opts *bind.TransactOpts, message string) (*types.Transaction, error) {
	txOpts := *opts
	txOpts.Context = ctx

	tx, err := wp.contract.Transact(&txOpts, "wave", message)
	if err != nil {
		return nil, fmt.Errorf("transact wave: %w", err)
	}

	return tx, nil
}

// WaitMined blocks until the transaction is mined and reports a reverted
// transaction as an error.
func (wp *WavePortal) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, wp.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait mined: %w", err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("tx %s: %w", tx.Hash().Hex(), ErrTxFailed)
	}

	return receipt, nil
}

// GetAllWaves returns every wave stored by the contract in storage order.
func (wp *WavePortal) GetAllWaves(ctx context.Context) ([]Record, error) {
	var out []any
	if err := wp.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAllWaves"); err != nil {
		return nil, fmt.Errorf("call getAllWaves: %w", err)
	}

	if len(out) == 0 {
		return nil, nil
	}

	records := *abi.ConvertType(out[0], new([]Record)).(*[]Record)

	return records, nil
}

// TotalWaves returns the number of waves the contract has received.
func (wp *WavePortal) TotalWaves(ctx context.Context) (*big.Int, error) {
	var out []any
	if err := wp.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getTotalWaves"); err != nil {
		return nil, fmt.Errorf("call getTotalWaves: %w", err)
	}

	if len(out) == 0 {
		return new(big.Int), nil
	}

	total := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)

	return total, nil
}

// =============================================================================

// WatchNewWave streams NewWave events into sink until the subscription is
// closed. Passing senders restricts the stream to those accounts.
func (wp *WavePortal) WatchNewWave(ctx context.Context, sink chan<- *NewWave, from ...common.Address) (event.Subscription, error) {
	logs, sub, err := wp.contract.WatchLogs(&bind.WatchOpts{Context: ctx}, "NewWave", senderRule(from))
	if err != nil {
		return nil, fmt.Errorf("watch NewWave: %w", err)
	}

	f := func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()

		for {
			select {
			case log := <-logs:
				ev, err := wp.ParseNewWave(log)
				if err != nil {
					return err
				}

				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}

			case err := <-sub.Err():
				return err

			case <-quit:
				return nil
			}
		}
	}

	return event.NewSubscription(f), nil
}

// WatchNewWinner streams NewWinner events into sink until the subscription is
// closed. Passing senders restricts the stream to those accounts.
func (wp *WavePortal) WatchNewWinner(ctx context.Context, sink chan<- *NewWinner, from ...common.Address) (event.Subscription, error) {
	logs, sub, err := wp.contract.WatchLogs(&bind.WatchOpts{Context: ctx}, "NewWinner", senderRule(from))
	if err != nil {
		return nil, fmt.Errorf("watch NewWinner: %w", err)
	}

	f := func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()

		for {
			select {
			case log := <-logs:
				ev, err := wp.ParseNewWinner(log)
				if err != nil {
					return err
				}

				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}

			case err := <-sub.Err():
				return err

			case <-quit:
				return nil
			}
		}
	}

	return event.NewSubscription(f), nil
}

// ParseNewWave decodes a NewWave log.
func (wp *WavePortal) ParseNewWave(log types.Log) (*NewWave, error) {
	var ev NewWave
	if err := wp.contract.UnpackLog(&ev, "NewWave", log); err != nil {
		return nil, fmt.Errorf("unpack NewWave: %w", err)
	}
	ev.Raw = log

	return &ev, nil
}

// ParseNewWinner decodes a NewWinner log.
func (wp *WavePortal) ParseNewWinner(log types.Log) (*NewWinner, error) {
	var ev NewWinner
	if err := wp.contract.UnpackLog(&ev, "NewWinner", log); err != nil {
		return nil, fmt.Errorf("unpack NewWinner: %w", err)
	}
	ev.Raw = log

	return &ev, nil
}

func senderRule(from []common.Address) []any {
	var rule []any
	for _, addr := range from {
		rule = append(rule, addr)
	}

	return rule
}

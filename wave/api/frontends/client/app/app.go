// Package app provides client app support.
package app

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/contract"
	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ardanlabs/waveportal/wave/app/sdk/wallet"
	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Storage represents the local archive of waves.
type Storage interface {
	InsertWaves(waves []feed.Wave) error
	QueryWaves() ([]feed.Wave, error)
	MyAccount() (common.Address, error)
	SaveMyAccount(id common.Address) error
}

// UI represents the screen the app renders into.
type UI interface {
	Run() error
	Render(state State)
}

// Gateway represents the contract the app talks to.
type Gateway interface {
	feed.Gateway
	Wave(ctx context.Context, opts *bind.TransactOpts, message string) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Config represents the systems the app needs. Wallet is nil when no wallet
// is installed and Storage is optional.
type Config struct {
	Log       *logger.Logger
	Wallet    wallet.Provider
	Gateway   Gateway
	Storage   Storage
	ChainID   *big.Int
	GasLimit  uint64
	WinnerTTL time.Duration
}

// =============================================================================

// App wires the wallet, the contract and the wave feed to the UI.
type App struct {
	log      *logger.Logger
	wallet   wallet.Provider
	gw       Gateway
	db       Storage
	chainID  *big.Int
	gasLimit uint64
	feed     *feed.Feed

	mu              sync.Mutex
	ui              UI
	walletAvailable bool
	account         common.Address
	loading         bool
	message         string
}

// New constructs the client app.
func New(cfg Config) *App {
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = contract.DefaultGasLimit
	}

	app := App{
		log:             cfg.Log,
		wallet:          cfg.Wallet,
		gw:              cfg.Gateway,
		db:              cfg.Storage,
		chainID:         cfg.ChainID,
		gasLimit:        gasLimit,
		walletAvailable: cfg.Wallet != nil,
	}

	app.feed = feed.New(feed.Config{
		Log:       cfg.Log,
		Gateway:   cfg.Gateway,
		WinnerTTL: cfg.WinnerTTL,
		OnChange: func(feed.Snapshot) {
			app.render()
		},
		OnEvent: app.archiveEvent,
	})

	return &app
}

// SetUI sets the screen the app renders into.
func (app *App) SetUI(ui UI) {
	app.mu.Lock()
	app.ui = ui
	app.mu.Unlock()

	app.render()
}

// Run starts the UI and blocks until it is closed.
func (app *App) Run() error {
	app.mu.Lock()
	ui := app.ui
	app.mu.Unlock()

	return ui.Run()
}

// State returns what the UI should render.
func (app *App) State() State {
	snap := app.feed.Snapshot()

	app.mu.Lock()
	defer app.mu.Unlock()

	return State{
		WalletAvailable: app.walletAvailable,
		Account:         app.account,
		Loading:         app.loading,
		Message:         app.message,
		Waves:           snap.Waves,
		WinnerAmount:    snap.WinnerAmount,
	}
}

// SetMessage records the pending message being typed.
func (app *App) SetMessage(msg string) {
	app.mu.Lock()
	app.message = msg
	app.mu.Unlock()
}

// =============================================================================

// CheckWallet reports whether a wallet is installed. Without one the wave
// list is cleared.
func (app *App) CheckWallet() (wallet.Provider, bool) {
	app.mu.Lock()
	app.walletAvailable = app.wallet != nil
	w := app.wallet
	app.mu.Unlock()

	if w == nil {
		app.feed.Reset()
		return nil, false
	}

	return w, true
}

// CheckIfWalletIsConnected picks up an account the wallet already authorized
// and loads the waves for it.
func (app *App) CheckIfWalletIsConnected(ctx context.Context) {
	w, ok := app.CheckWallet()
	if !ok {
		return
	}

	accounts, err := w.Accounts(ctx)
	if err != nil {
		app.log.Error(ctx, "check wallet", "ERROR", err)
		return
	}

	if len(accounts) == 0 {
		app.feed.Reset()
		app.setAccount(ctx, common.Address{})
		app.log.Info(ctx, "check wallet", "status", "no authorized account found")
		return
	}

	app.setAccount(ctx, accounts[0])
	app.GetAllWaves(ctx)
}

// ConnectWallet asks the wallet for access and loads the waves.
func (app *App) ConnectWallet(ctx context.Context) {
	w, ok := app.CheckWallet()
	if !ok {
		return
	}

	accounts, err := w.RequestAccounts(ctx)
	if err != nil {
		app.log.Error(ctx, "connect wallet", "ERROR", err)
		return
	}

	if len(accounts) == 0 {
		app.log.Info(ctx, "connect wallet", "status", "no account granted")
		return
	}

	app.setAccount(ctx, accounts[0])
	app.GetAllWaves(ctx)
}

// DisconnectWallet revokes the wallet authorization and clears the account
// and the waves.
func (app *App) DisconnectWallet(ctx context.Context) {
	w, ok := app.CheckWallet()
	if !ok {
		return
	}

	if err := w.Disconnect(ctx); err != nil {
		app.log.Error(ctx, "disconnect wallet", "ERROR", err)
	}

	app.setAccount(ctx, common.Address{})
	app.feed.Reset()
}

// Wave sends the message to the contract and waits for it to be mined. The
// pending message is cleared whether or not the wave went through.
func (app *App) Wave(ctx context.Context, message string) {
	w, ok := app.CheckWallet()
	if !ok {
		return
	}

	app.mu.Lock()
	account := app.account
	app.mu.Unlock()

	if account == (common.Address{}) {
		app.log.Info(ctx, "wave", "status", "no account connected")
		return
	}

	app.setLoading(true)
	defer app.finishWave()

	opts, err := w.Transactor(ctx, account, app.chainID)
	if err != nil {
		app.log.Error(ctx, "wave", "status", "transactor", "ERROR", err)
		return
	}
	opts.GasLimit = app.gasLimit

	tx, err := app.gw.Wave(ctx, opts, message)
	if err != nil {
		app.log.Error(ctx, "wave", "status", "send", "ERROR", err)
		return
	}

	app.log.Info(ctx, "wave", "status", "mining", "tx", tx.Hash().Hex())

	receipt, err := app.gw.WaitMined(ctx, tx)
	if err != nil {
		app.log.Error(ctx, "wave", "status", "mined", "tx", tx.Hash().Hex(), "ERROR", err)
		return
	}

	app.log.Info(ctx, "wave", "status", "mined", "tx", tx.Hash().Hex(), "block", receipt.BlockNumber)
}

// GetAllWaves reloads the list from the contract and archives it.
func (app *App) GetAllWaves(ctx context.Context) {
	if _, ok := app.CheckWallet(); !ok {
		return
	}

	if err := app.feed.Load(ctx); err != nil {
		app.log.Error(ctx, "get all waves", "ERROR", err)
		return
	}

	if app.db == nil {
		return
	}

	if err := app.db.InsertWaves(app.feed.Snapshot().Waves); err != nil {
		app.log.Error(ctx, "get all waves", "status", "archive", "ERROR", err)
	}
}

// LoadArchive shows the archived waves until the contract answers.
func (app *App) LoadArchive(ctx context.Context) {
	if app.db == nil {
		return
	}

	waves, err := app.db.QueryWaves()
	if err != nil {
		app.log.Error(ctx, "load archive", "ERROR", err)
		return
	}

	app.feed.Replace(waves)
}

// Mount registers the live contract subscriptions.
func (app *App) Mount(ctx context.Context) {
	if _, ok := app.CheckWallet(); !ok {
		return
	}

	if err := app.feed.Mount(ctx); err != nil {
		app.log.Error(ctx, "mount", "ERROR", err)
	}
}

// Unmount removes the live contract subscriptions.
func (app *App) Unmount() {
	app.feed.Unmount()
}

// =============================================================================

func (app *App) setAccount(ctx context.Context, account common.Address) {
	app.mu.Lock()
	app.account = account
	app.mu.Unlock()

	app.feed.SetAccount(account)

	if app.db == nil || account == (common.Address{}) {
		return
	}

	if err := app.db.SaveMyAccount(account); err != nil {
		app.log.Error(ctx, "save account", "ERROR", err)
	}
}

func (app *App) setLoading(loading bool) {
	app.mu.Lock()
	app.loading = loading
	app.mu.Unlock()

	app.render()
}

func (app *App) finishWave() {
	app.mu.Lock()
	app.loading = false
	app.message = ""
	app.mu.Unlock()

	app.render()
}

func (app *App) archiveEvent(ev feed.Event) {
	if ev.Kind != feed.EventNewWave || app.db == nil {
		return
	}

	if err := app.db.InsertWaves([]feed.Wave{*ev.Wave}); err != nil {
		app.log.Error(context.Background(), "archive wave", "ERROR", err)
	}
}

func (app *App) render() {
	app.mu.Lock()
	ui := app.ui
	app.mu.Unlock()

	if ui == nil {
		return
	}

	ui.Render(app.State())
}

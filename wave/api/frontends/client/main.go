package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/waveportal/wave/api/frontends/client/app"
	"github.com/ardanlabs/waveportal/wave/api/frontends/client/storage/dbfile"
	"github.com/ardanlabs/waveportal/wave/api/frontends/client/storage/sql"
	"github.com/ardanlabs/waveportal/wave/api/frontends/client/ui/tui"
	"github.com/ardanlabs/waveportal/wave/app/sdk/contract"
	"github.com/ardanlabs/waveportal/wave/app/sdk/wallet"
	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

var build = "develop"

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {

	// -------------------------------------------------------------------------
	// Configuration

	cfg := struct {
		conf.Version
		Chain struct {
			URL             string        `conf:"default:ws://localhost:8546"`
			ContractAddress string        `conf:"default:0xc9cba0069E818c6D0A82DB4d0B70f0E480Ddb578"`
			GasLimit        uint64        `conf:"default:300000"`
			ExplorerURL     string        `conf:"default:https://rinkeby.etherscan.io/address/"`
			DialTimeout     time.Duration `conf:"default:10s"`
		}
		Wallet struct {
			Kind       string `conf:"default:keyfile"`
			Path       string `conf:"default:wave/zarf/wallet"`
			Passphrase string `conf:"mask"`
		}
		Storage struct {
			Kind string `conf:"default:sql"`
			Path string `conf:"default:wave/zarf/client"`
		}
		Feed struct {
			WinnerTTL time.Duration `conf:"default:8s"`
		}
		Log struct {
			File string `conf:"default:wave/zarf/client/client.log"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "Wave Portal",
		},
	}

	const prefix = "WAVE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// -------------------------------------------------------------------------
	// Logging

	// The terminal belongs to the UI so the logs go to a file.
	os.MkdirAll(filepath.Dir(cfg.Log.File), os.ModePerm)

	logFile, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer logFile.Close()

	log := logger.New(logFile, logger.LevelInfo, "WAVE-CLIENT", nil)

	ctx := context.Background()

	log.Info(ctx, "starting client", "version", cfg.Build)
	defer log.Info(ctx, "shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Info(ctx, "startup", "config", out)

	// -------------------------------------------------------------------------
	// Chain

	if !common.IsHexAddress(cfg.Chain.ContractAddress) {
		return fmt.Errorf("invalid contract address %q", cfg.Chain.ContractAddress)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Chain.DialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, cfg.Chain.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer client.Close()

	chainID, err := client.ChainID(dialCtx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}

	log.Info(ctx, "startup", "status", "connected", "url", cfg.Chain.URL, "chainID", chainID)

	wp, err := contract.New(common.HexToAddress(cfg.Chain.ContractAddress), client)
	if err != nil {
		return fmt.Errorf("contract: %w", err)
	}

	// -------------------------------------------------------------------------
	// Wallet

	w, ok, err := wallet.Detect(cfg.Wallet.Kind, cfg.Wallet.Path, cfg.Wallet.Passphrase)
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}

	if !ok {
		log.Info(ctx, "startup", "status", "make sure you have a wallet", "kind", cfg.Wallet.Kind, "path", cfg.Wallet.Path)
	}

	// -------------------------------------------------------------------------
	// Storage

	db, err := newStorage(cfg.Storage.Kind, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	myAccount, err := db.MyAccount()
	if err != nil {
		return fmt.Errorf("my account: %w", err)
	}

	log.Info(ctx, "startup", "status", "archive ready", "kind", cfg.Storage.Kind, "lastAccount", myAccount.Hex())

	// -------------------------------------------------------------------------
	// App

	a := app.New(app.Config{
		Log:       log,
		Wallet:    w,
		Gateway:   wp,
		Storage:   db,
		ChainID:   chainID,
		GasLimit:  cfg.Chain.GasLimit,
		WinnerTTL: cfg.Feed.WinnerTTL,
	})

	ui := tui.New(cfg.Chain.ExplorerURL)
	ui.SetApp(a)
	a.SetUI(ui)

	a.LoadArchive(ctx)
	a.CheckIfWalletIsConnected(ctx)

	a.Mount(ctx)
	defer a.Unmount()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		sig := <-shutdown
		log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		ui.Stop()
	}()

	if err := a.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}

func newStorage(kind string, path string) (app.Storage, error) {
	switch kind {
	case "sql":
		return sql.NewDB(path)

	case "file":
		return dbfile.NewDB(path)
	}

	return nil, fmt.Errorf("unknown storage kind %q", kind)
}

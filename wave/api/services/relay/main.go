package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/waveportal/wave/app/sdk/contract"
	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ardanlabs/waveportal/wave/app/sdk/mux"
	"github.com/ardanlabs/waveportal/wave/app/sdk/relay"
	"github.com/ardanlabs/waveportal/wave/app/sdk/relay/clients"
	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/ardanlabs/waveportal/wave/foundation/web"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

var build = "develop"

func main() {
	var log *logger.Logger

	traceIDFn := func(ctx context.Context) string {
		return web.GetTraceID(ctx).String()
	}

	log = logger.New(os.Stdout, logger.LevelInfo, "RELAY", traceIDFn)

	// -------------------------------------------------------------------------

	ctx := context.Background()

	if err := run(ctx, log); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {

	// -------------------------------------------------------------------------
	// GOMAXPROCS

	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	// -------------------------------------------------------------------------
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			APIHost         string        `conf:"default:0.0.0.0:3000"`
		}
		Chain struct {
			URL             string        `conf:"default:ws://localhost:8546"`
			ContractAddress string        `conf:"default:0xc9cba0069E818c6D0A82DB4d0B70f0E480Ddb578"`
			DialTimeout     time.Duration `conf:"default:10s"`
		}
		NATS struct {
			Host       string `conf:"default:demo.nats.io"`
			Subject    string `conf:"default:ardanlabs-waveportal"`
			IDFilePath string `conf:"default:wave/zarf/relay"`
		}
		Hub struct {
			PingEvery   time.Duration `conf:"default:10s"`
			HandshakeIn time.Duration `conf:"default:1s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "Wave Portal Relay",
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
	// App Starting

	log.Info(ctx, "starting service", "version", cfg.Build)
	defer log.Info(ctx, "shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Info(ctx, "startup", "config", out)

	log.BuildInfo(ctx)

	// -------------------------------------------------------------------------
	// Cap ID

	capID, err := loadCapID(cfg.NATS.IDFilePath)
	if err != nil {
		return fmt.Errorf("cap id: %w", err)
	}

	log.Info(ctx, "startup", "status", "getting cap", "capID", capID)

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

	wp, err := contract.New(common.HexToAddress(cfg.Chain.ContractAddress), client)
	if err != nil {
		return fmt.Errorf("contract: %w", err)
	}

	log.Info(ctx, "startup", "status", "contract bound", "url", cfg.Chain.URL, "contract", wp.Address().Hex())

	// -------------------------------------------------------------------------
	// Hub and NATS

	nc, err := nats.Connect(cfg.NATS.Host)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	hub := relay.New(relay.Config{
		Log:         log,
		Subscribers: clients.New(log),
		NATS:        nc,
		Subject:     cfg.NATS.Subject,
		CapID:       capID,
		PingEvery:   cfg.Hub.PingEvery,
		HandshakeIn: cfg.Hub.HandshakeIn,
	})
	defer hub.Shutdown()

	// -------------------------------------------------------------------------
	// Wave Feed

	fd := feed.New(feed.Config{
		Log:     log,
		Gateway: wp,
		OnEvent: hub.Broadcast,
	})

	if err := fd.Load(ctx); err != nil {
		return fmt.Errorf("load waves: %w", err)
	}

	if err := fd.Mount(ctx); err != nil {
		return fmt.Errorf("mount feed: %w", err)
	}
	defer fd.Unmount()

	log.Info(ctx, "startup", "status", "feed mounted", "waves", len(fd.Snapshot().Waves))

	// -------------------------------------------------------------------------
	// Start API Service

	log.Info(ctx, "startup", "status", "initializing V1 API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	webAPI := mux.WebAPI(mux.Config{
		Log:     log,
		Hub:     hub,
		Waves:   fd,
		Counter: wp,
	})

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      webAPI,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Info(ctx, "startup", "status", "api router started", "host", api.Addr)

		serverErrors <- api.ListenAndServe()
	}()

	// -------------------------------------------------------------------------
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(ctx, cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// loadCapID reads the relay identity from disk, creating it on first start.
func loadCapID(path string) (uuid.UUID, error) {
	fileName := filepath.Join(path, "cap.id")

	if _, err := os.Stat(fileName); err != nil {
		os.MkdirAll(path, os.ModePerm)

		f, err := os.Create(fileName)
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("id file create: %w", err)
		}

		if _, err := f.WriteString(uuid.NewString()); err != nil {
			f.Close()
			return uuid.UUID{}, fmt.Errorf("id file write: %w", err)
		}

		f.Close()
	}

	f, err := os.Open(fileName)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("id file open: %w", err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("id file read: %w", err)
	}

	id, err := uuid.Parse(string(b))
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("id file parse: %w", err)
	}

	return id, nil
}

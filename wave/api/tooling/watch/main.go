// This program subscribes to a relay and prints the contract events it
// forwards.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/waveportal/wave/app/domain/relayapp"
	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ardanlabs/waveportal/wave/app/sdk/format"
	"github.com/ardanlabs/waveportal/wave/app/sdk/relay"
	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
)

var build = "develop"

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := struct {
		conf.Version
		Relay struct {
			URL         string        `conf:"default:ws://localhost:3000/connect"`
			APIURL      string        `conf:"default:http://localhost:3000"`
			Recent      int           `conf:"default:10"`
			Name        string        `conf:"default:watcher"`
			DialTimeout time.Duration `conf:"default:5s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "Wave Portal Watch",
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

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Relay.DialTimeout)
	defer cancel()

	if err := printRecent(ctx, cfg.Relay.APIURL, cfg.Relay.Recent); err != nil {
		return fmt.Errorf("recent waves: %w", err)
	}

	stream, err := relay.Subscribe(ctx, cfg.Relay.URL, cfg.Relay.Name)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer stream.Close()

	fmt.Println("CONNECTED", cfg.Relay.URL)

	for {
		ev, err := stream.Next()
		if err != nil {
			return fmt.Errorf("next: %w", err)
		}

		switch ev.Kind {
		case feed.EventNewWave:
			if ev.Wave == nil {
				continue
			}
			fmt.Printf("%s  %s  %s\n", format.Date(ev.Wave.Timestamp), format.Address(ev.Wave.Address), ev.Wave.Message)

		case feed.EventNewWinner:
			if ev.Winner == nil {
				continue
			}
			fmt.Printf("%s  %s  won %s ether\n", format.Date(ev.Winner.Timestamp), format.Address(ev.Winner.From), format.Ether(ev.Winner.Amount))
		}
	}
}

func printRecent(ctx context.Context, apiURL string, limit int) error {
	url := apiURL + "/waves?limit=" + strconv.Itoa(limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status: %s", resp.Status)
	}

	var waves []relayapp.Wave
	if err := json.NewDecoder(resp.Body).Decode(&waves); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	rows := make([][]string, len(waves))
	for i, w := range waves {
		rows[i] = []string{
			format.Address(common.HexToAddress(w.Address)),
			w.Message,
			format.Date(w.Timestamp),
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Sender", "Message", "Received At"})
	table.AppendBulk(rows)
	table.Render()

	return nil
}

// Package feed keeps the list of waves in sync with the contract.
package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/contract"
	"github.com/ardanlabs/waveportal/wave/app/sdk/format"
	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// DefaultWinnerTTL is how long the winner banner stays up.
const DefaultWinnerTTL = 8 * time.Second

// ErrMounted is returned when the feed already has live subscriptions.
var ErrMounted = errors.New("feed already mounted")

// Gateway is the contract behavior the feed needs.
type Gateway interface {
	GetAllWaves(ctx context.Context) ([]contract.Record, error)
	WatchNewWave(ctx context.Context, sink chan<- *contract.NewWave, from ...common.Address) (event.Subscription, error)
	WatchNewWinner(ctx context.Context, sink chan<- *contract.NewWinner, from ...common.Address) (event.Subscription, error)
}

// Config represents the settings for a feed.
type Config struct {
	Log       *logger.Logger
	Gateway   Gateway
	WinnerTTL time.Duration
	OnChange  func(Snapshot)
	OnEvent   func(Event)
}

// Feed holds the waves read from the contract and applies live events.
type Feed struct {
	log       *logger.Logger
	gw        Gateway
	winnerTTL time.Duration
	onChange  func(Snapshot)
	onEvent   func(Event)

	mu        sync.Mutex
	account   common.Address
	waves     []Wave
	winner    string
	winnerGen uint64
	hideTimer *time.Timer

	quit chan struct{}
	wg   sync.WaitGroup
}

// New constructs a feed.
func New(cfg Config) *Feed {
	ttl := cfg.WinnerTTL
	if ttl <= 0 {
		ttl = DefaultWinnerTTL
	}

	return &Feed{
		log:       cfg.Log,
		gw:        cfg.Gateway,
		winnerTTL: ttl,
		onChange:  cfg.OnChange,
		onEvent:   cfg.OnEvent,
		waves:     []Wave{},
	}
}

// Sort orders waves newest first. Waves with the same timestamp keep their
// relative order.
func Sort(waves []Wave) {
	slices.SortStableFunc(waves, func(a, b Wave) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

// Load reads every wave from the contract and replaces the list.
func (f *Feed) Load(ctx context.Context) error {
	records, err := f.gw.GetAllWaves(ctx)
	if err != nil {
		return fmt.Errorf("get all waves: %w", err)
	}

	waves := FromRecords(records)
	Sort(waves)

	f.mu.Lock()
	f.waves = waves
	snap := f.snapshot()
	f.mu.Unlock()

	f.log.Debug(ctx, "feed-load", "waves", len(waves))

	f.notify(snap)

	return nil
}

// Replace sets the list to the specified waves, sorted newest first.
func (f *Feed) Replace(waves []Wave) {
	cp := slices.Clone(waves)
	Sort(cp)

	f.mu.Lock()
	f.waves = cp
	snap := f.snapshot()
	f.mu.Unlock()

	f.notify(snap)
}

// Reset clears the list of waves.
func (f *Feed) Reset() {
	f.mu.Lock()
	f.waves = []Wave{}
	snap := f.snapshot()
	f.mu.Unlock()

	f.notify(snap)
}

// SetAccount sets the account winner events are matched against. The zero
// address matches nothing.
func (f *Feed) SetAccount(account common.Address) {
	f.mu.Lock()
	f.account = account
	snap := f.snapshot()
	f.mu.Unlock()

	f.notify(snap)
}

// Snapshot returns a copy of the current state.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.snapshot()
}

// Mount registers the NewWave and NewWinner subscriptions.
func (f *Feed) Mount(ctx context.Context) error {
	f.mu.Lock()
	mounted := f.quit != nil
	f.mu.Unlock()

	if mounted {
		return ErrMounted
	}

	waveCh := make(chan *contract.NewWave, 16)
	winnerCh := make(chan *contract.NewWinner, 16)

	waveSub, err := f.gw.WatchNewWave(ctx, waveCh)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	winnerSub, err := f.gw.WatchNewWinner(ctx, winnerCh)
	if err != nil {
		waveSub.Unsubscribe()
		return fmt.Errorf("mount: %w", err)
	}

	f.mu.Lock()
	if f.quit != nil {
		f.mu.Unlock()
		waveSub.Unsubscribe()
		winnerSub.Unsubscribe()
		return ErrMounted
	}

	quit := make(chan struct{})
	f.quit = quit

	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		f.eventLoop(ctx, quit, waveCh, winnerCh, waveSub, winnerSub)
	}()

	f.log.Info(ctx, "feed-mount", "status", "subscribed")

	return nil
}

func (f *Feed) Unmount() {
	f.mu.Lock()
	quit := f.quit
	f.quit = nil
	f.mu.Unlock()

	if quit == nil {
		return
	}

	close(quit)
	f.wg.Wait()

	f.mu.Lock()
	if f.hideTimer != nil {
		f.hideTimer.Stop()
		f.hideTimer = nil
	}
	f.winner = ""
	f.winnerGen++
	f.mu.Unlock()
}

// =============================================================================

func (f *Feed) eventLoop(ctx context.Context, quit <-chan struct{}, waveCh <-chan *contract.NewWave, winnerCh <-chan *contract.NewWinner, waveSub event.Subscription, winnerSub event.Subscription) {
	defer waveSub.Unsubscribe()
	defer winnerSub.Unsubscribe()

	for {
		select {
		case ev := <-waveCh:
			f.onWave(ctx, ev)

		case ev := <-winnerCh:
			f.onWinner(ctx, ev)

		case err := <-waveSub.Err():
			if err != nil {
				f.log.Error(ctx, "feed-subscription", "event", "NewWave", "ERROR", err)
			}
			return

		case err := <-winnerSub.Err():
			if err != nil {
				f.log.Error(ctx, "feed-subscription", "event", "NewWinner", "ERROR", err)
			}
			return

		case <-quit:
			return
		}
	}
}

func (f *Feed) onWave(ctx context.Context, ev *contract.NewWave) {
	w := toWave(ev.From, ev.Timestamp, ev.Message)

	f.mu.Lock()
	f.waves = append([]Wave{w}, f.waves...)
	snap := f.snapshot()
	f.mu.Unlock()

	f.log.Info(ctx, "new wave", "from", w.Address.Hex(), "timestamp", w.Timestamp.Unix())

	f.notify(snap)
	f.emit(Event{Kind: EventNewWave, Wave: &w})
}

func (f *Feed) onWinner(ctx context.Context, ev *contract.NewWinner) {
	amount := format.Ether(ev.Amount)

	f.log.Info(ctx, "new winner", "from", ev.From.Hex(), "amount", amount)

	winner := Winner{
		From:      ev.From,
		Timestamp: toTime(ev.Timestamp),
		Amount:    ev.Amount,
	}

	f.mu.Lock()
	if f.account == (common.Address{}) || ev.From != f.account {
		f.mu.Unlock()
		f.emit(Event{Kind: EventNewWinner, Winner: &winner})
		return
	}

	if f.hideTimer != nil {
		f.hideTimer.Stop()
	}

	f.winnerGen++
	gen := f.winnerGen

	f.winner = amount
	f.hideTimer = time.AfterFunc(f.winnerTTL, func() {
		f.hideWinner(gen)
	})

	snap := f.snapshot()
	f.mu.Unlock()

	f.notify(snap)
	f.emit(Event{Kind: EventNewWinner, Winner: &winner})
}

func (f *Feed) hideWinner(gen uint64) {
	f.mu.Lock()
	if gen != f.winnerGen {
		f.mu.Unlock()
		return
	}

	f.winner = ""
	f.hideTimer = nil
	snap := f.snapshot()
	f.mu.Unlock()

	f.notify(snap)
}

func (f *Feed) snapshot() Snapshot {
	return Snapshot{
		Account:      f.account,
		Waves:        slices.Clone(f.waves),
		WinnerAmount: f.winner,
	}
}

func (f *Feed) notify(snap Snapshot) {
	if f.onChange != nil {
		f.onChange(snap)
	}
}

func (f *Feed) emit(ev Event) {
	if f.onEvent != nil {
		f.onEvent(ev)
	}
}

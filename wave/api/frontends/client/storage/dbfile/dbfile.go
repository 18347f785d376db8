// Package dbfile provides a flat file archive of waves.
package dbfile

import (
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ethereum/go-ethereum/common"
)

type DB struct {
	files     files
	myAccount common.Address
	waves     []feed.Wave
	seen      map[string]struct{}
	mu        sync.RWMutex
}

func NewDB(filePath string) (*DB, error) {
	fs, df, err := newDB(filePath)
	if err != nil {
		return nil, fmt.Errorf("newDB: %w", err)
	}

	lines, err := fs.readWavesFromDisk()
	if err != nil {
		return nil, fmt.Errorf("read waves: %w", err)
	}

	db := DB{
		files:     fs,
		myAccount: df.MyAccount.ID,
		waves:     make([]feed.Wave, 0, len(lines)),
		seen:      make(map[string]struct{}, len(lines)),
	}

	for _, l := range lines {
		w := feed.Wave{
			Address:   l.Address,
			Timestamp: time.Unix(l.Timestamp, 0),
			Message:   l.Message,
		}

		k := key(w)
		if _, exists := db.seen[k]; exists {
			continue
		}

		db.seen[k] = struct{}{}
		db.waves = append(db.waves, w)
	}

	return &db, nil
}

func (db *DB) MyAccount() (common.Address, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.myAccount, nil
}

func (db *DB) SaveMyAccount(id common.Address) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	df, err := db.files.readDBFromDisk()
	if err != nil {
		return fmt.Errorf("config read: %w", err)
	}

	df.MyAccount.ID = id

	if err := db.files.flushDBToDisk(df); err != nil {
		return fmt.Errorf("config write: %w", err)
	}

	db.myAccount = id

	return nil
}

// InsertWaves appends the waves not archived yet.
func (db *DB) InsertWaves(waves []feed.Wave) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, w := range waves {
		k := key(w)
		if _, exists := db.seen[k]; exists {
			continue
		}

		if err := db.files.flushWaveToDisk(w); err != nil {
			return fmt.Errorf("write wave: %w", err)
		}

		db.seen[k] = struct{}{}
		db.waves = append(db.waves, w)
	}

	return nil
}

// QueryWaves returns the archived waves, newest first.
func (db *DB) QueryWaves() ([]feed.Wave, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	waves := make([]feed.Wave, len(db.waves))
	copy(waves, db.waves)
	feed.Sort(waves)

	return waves, nil
}

// CleanTables removes the archived waves and the saved account.
func (db *DB) CleanTables() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.files.removeWavesFromDisk(); err != nil {
		return fmt.Errorf("clean waves: %w", err)
	}

	db.waves = []feed.Wave{}
	db.seen = make(map[string]struct{})

	if err := db.files.flushDBToDisk(dataFile{}); err != nil {
		return fmt.Errorf("clean account: %w", err)
	}

	db.myAccount = common.Address{}

	return nil
}

func key(w feed.Wave) string {
	return fmt.Sprintf("%s|%d|%s", w.Address.Hex(), w.Timestamp.Unix(), w.Message)
}

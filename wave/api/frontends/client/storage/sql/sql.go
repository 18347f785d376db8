// Package sql provides a sqlite archive of waves.
package sql

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	dbDirName  = "db"
	dbFileName = "data.db"
	batchSize  = 500
)

type DB struct {
	db *gorm.DB
}

type myAccount struct {
	Singleton bool   `gorm:"primaryKey;default:true"`
	ID        string `gorm:"column:id"`
}

type wave struct {
	ID        uint64 `gorm:"primaryKey;column:id"`
	Address   string `gorm:"column:address;uniqueIndex:idx_wave"`
	Timestamp int64  `gorm:"column:timestamp;uniqueIndex:idx_wave;index"`
	Message   string `gorm:"column:message;uniqueIndex:idx_wave"`
}

func NewDB(filePath string) (*DB, error) {
	dbFileDir := filepath.Join(filePath, dbDirName)
	os.MkdirAll(dbFileDir, os.ModePerm)

	fileName := filepath.Join(dbFileDir, dbFileName)
	db, err := gorm.Open(sqlite.Open(fileName), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	if err := db.AutoMigrate(&wave{}, &myAccount{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DB{db: db}, nil
}

func (db *DB) MyAccount() (common.Address, error) {
	var acc myAccount
	if err := db.db.First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.Address{}, nil
		}
		return common.Address{}, fmt.Errorf("query my account: %w", err)
	}

	return common.HexToAddress(acc.ID), nil
}

func (db *DB) SaveMyAccount(id common.Address) error {
	res := db.db.Save(&myAccount{
		Singleton: true,
		ID:        id.Hex(),
	})
	if res.Error != nil {
		return fmt.Errorf("save my account: %w", res.Error)
	}

	return nil
}

// InsertWaves stores the waves, skipping the ones already archived.
func (db *DB) InsertWaves(waves []feed.Wave) error {
	if len(waves) == 0 {
		return nil
	}

	rows := make([]wave, len(waves))
	for i, w := range waves {
		rows[i] = wave{
			Address:   w.Address.Hex(),
			Timestamp: w.Timestamp.Unix(),
			Message:   w.Message,
		}
	}

	res := db.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, batchSize)
	if res.Error != nil {
		return fmt.Errorf("insert waves: %w", res.Error)
	}

	return nil
}

// QueryWaves returns the archived waves, newest first.
func (db *DB) QueryWaves() ([]feed.Wave, error) {
	var rows []wave
	if err := db.db.Order("timestamp desc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query waves: %w", err)
	}

	waves := make([]feed.Wave, len(rows))
	for i, r := range rows {
		waves[i] = feed.Wave{
			Address:   common.HexToAddress(r.Address),
			Timestamp: time.Unix(r.Timestamp, 0),
			Message:   r.Message,
		}
	}

	return waves, nil
}

func (db *DB) CleanTables() error {
	if err := db.db.Migrator().DropTable(&wave{}, &myAccount{}); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}

	if err := db.db.AutoMigrate(&wave{}, &myAccount{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

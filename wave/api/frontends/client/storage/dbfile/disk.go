package dbfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ethereum/go-ethereum/common"
)

const (
	dbDirName      = "db"
	dbFileName     = "data.json"
	dbWavesLogName = "waves.log"
)

type myAccount struct {
	ID common.Address `json:"id"`
}

type dataFile struct {
	MyAccount myAccount `json:"my_account"`
}

type waveLine struct {
	Address   common.Address `json:"address"`
	Timestamp int64          `json:"timestamp"`
	Message   string         `json:"message"`
}

type files struct {
	dbFile   string
	wavesLog string
}

func newDB(filePath string) (files, dataFile, error) {
	dbFileDir := filepath.Join(filePath, dbDirName)
	os.MkdirAll(dbFileDir, os.ModePerm)

	fs := files{
		dbFile:   filepath.Join(dbFileDir, dbFileName),
		wavesLog: filepath.Join(dbFileDir, dbWavesLogName),
	}

	var df dataFile

	_, err := os.Stat(fs.dbFile)
	switch {
	case err != nil:
		df, err = fs.createDBOnDisk()

	default:
		df, err = fs.readDBFromDisk()
	}

	if err != nil {
		return files{}, dataFile{}, fmt.Errorf("config: %w", err)
	}

	return fs, df, nil
}

func (fs files) createDBOnDisk() (dataFile, error) {
	var df dataFile

	if err := fs.flushDBToDisk(df); err != nil {
		return dataFile{}, err
	}

	return df, nil
}

func (fs files) readDBFromDisk() (dataFile, error) {
	f, err := os.Open(fs.dbFile)
	if err != nil {
		return dataFile{}, fmt.Errorf("data file open: %w", err)
	}
	defer f.Close()

	var df dataFile
	if err := json.NewDecoder(f).Decode(&df); err != nil {
		return dataFile{}, fmt.Errorf("config decode: %w", err)
	}

	return df, nil
}

func (fs files) flushDBToDisk(df dataFile) error {
	f, err := os.Create(fs.dbFile)
	if err != nil {
		return fmt.Errorf("config data file create: %w", err)
	}
	defer f.Close()

	jsonDF, err := json.MarshalIndent(df, "", "    ")
	if err != nil {
		return fmt.Errorf("config data file marshal: %w", err)
	}

	if _, err := f.Write(jsonDF); err != nil {
		return fmt.Errorf("config data file write: %w", err)
	}

	return nil
}

func (fs files) readWavesFromDisk() ([]waveLine, error) {
	f, err := os.Open(fs.wavesLog)
	if err != nil {
		return []waveLine{}, nil
	}
	defer f.Close()

	var lines []waveLine

	r := bufio.NewReader(f)
	for {
		data, err := r.ReadBytes('\n')
		if len(bytes.TrimSpace(data)) > 0 {
			var l waveLine
			if err := json.Unmarshal(data, &l); err != nil {
				return nil, fmt.Errorf("wave decode: %w", err)
			}
			lines = append(lines, l)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("wave read: %w", err)
		}
	}

	return lines, nil
}

func (fs files) flushWaveToDisk(w feed.Wave) error {
	f, err := os.OpenFile(fs.wavesLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("wave file open: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(waveLine{
		Address:   w.Address,
		Timestamp: w.Timestamp.Unix(),
		Message:   w.Message,
	})
	if err != nil {
		return fmt.Errorf("wave marshal: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("wave file write: %w", err)
	}

	return nil
}

func (fs files) removeWavesFromDisk() error {
	if err := os.Remove(fs.wavesLog); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

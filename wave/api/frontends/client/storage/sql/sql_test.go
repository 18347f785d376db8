package sql_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/ardanlabs/waveportal/wave/api/frontends/client/storage/sql"
	"github.com/ardanlabs/waveportal/wave/app/sdk/feed"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestNewDB(t *testing.T) {
	db, err := sql.NewDB(t.TempDir())
	assert.NoError(t, err)
	assert.NotNil(t, db)
}

func TestMyAccount(t *testing.T) {
	db, err := sql.NewDB(t.TempDir())
	assert.NoError(t, err)

	account, err := db.MyAccount()
	assert.NoError(t, err)
	assert.Equal(t, common.Address{}, account)

	err = db.SaveMyAccount(common.HexToAddress("0xF"))
	assert.NoError(t, err)

	err = db.SaveMyAccount(common.HexToAddress("0xE"))
	assert.NoError(t, err)

	account, err = db.MyAccount()
	assert.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xE"), account)
}

func TestInsertWaves(t *testing.T) {
	db, err := sql.NewDB(t.TempDir())
	assert.NoError(t, err)

	waves := []feed.Wave{
		{Address: common.HexToAddress("0x1"), Timestamp: time.Unix(100, 0), Message: "first"},
		{Address: common.HexToAddress("0x2"), Timestamp: time.Unix(300, 0), Message: "third"},
		{Address: common.HexToAddress("0x1"), Timestamp: time.Unix(200, 0), Message: "second"},
	}

	err = db.InsertWaves(waves)
	assert.NoError(t, err)

	err = db.InsertWaves(waves[:1])
	assert.NoError(t, err, "duplicates are skipped")

	err = db.InsertWaves(nil)
	assert.NoError(t, err)

	got, err := db.QueryWaves()
	assert.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "third", got[0].Message)
	assert.Equal(t, common.HexToAddress("0x2"), got[0].Address)
	assert.Equal(t, int64(300), got[0].Timestamp.Unix())
	assert.Equal(t, "second", got[1].Message)
	assert.Equal(t, "first", got[2].Message)
}

func TestInsertWavesLarge(t *testing.T) {
	db, err := sql.NewDB(t.TempDir())
	assert.NoError(t, err)

	const total = 12_000

	waves := make([]feed.Wave, total)
	for i := range waves {
		waves[i] = feed.Wave{
			Address:   common.HexToAddress("0x1"),
			Timestamp: time.Unix(int64(i+1), 0),
			Message:   fmt.Sprintf("wave %d", i),
		}
	}

	err = db.InsertWaves(waves)
	assert.NoError(t, err)

	err = db.InsertWaves(waves[total-700:])
	assert.NoError(t, err, "duplicates are skipped across batches")

	got, err := db.QueryWaves()
	assert.NoError(t, err)
	assert.Len(t, got, total)
	assert.Equal(t, fmt.Sprintf("wave %d", total-1), got[0].Message)
}

func TestCleanTables(t *testing.T) {
	db, err := sql.NewDB(t.TempDir())
	assert.NoError(t, err)

	err = db.InsertWaves([]feed.Wave{
		{Address: common.HexToAddress("0x1"), Timestamp: time.Unix(1, 0), Message: "hi"},
	})
	assert.NoError(t, err)

	err = db.SaveMyAccount(common.HexToAddress("0xF"))
	assert.NoError(t, err)

	err = db.CleanTables()
	assert.NoError(t, err)

	got, err := db.QueryWaves()
	assert.NoError(t, err)
	assert.Len(t, got, 0)

	account, err := db.MyAccount()
	assert.NoError(t, err)
	assert.Equal(t, common.Address{}, account)
}

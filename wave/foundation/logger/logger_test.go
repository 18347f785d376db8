package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/ardanlabs/waveportal/wave/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfo(t *testing.T) {
	var buf bytes.Buffer

	traceIDFn := func(ctx context.Context) string {
		return "trace-1"
	}

	log := logger.New(&buf, logger.LevelInfo, "TEST", traceIDFn)
	log.Info(context.Background(), "wave sent", "account", "0x1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "wave sent", entry["msg"])
	assert.Equal(t, "TEST", entry["service"])
	assert.Equal(t, "0x1", entry["account"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Contains(t, entry["file"], "logger_test.go")
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer

	log := logger.New(&buf, logger.LevelWarn, "TEST", nil)
	log.Debug(context.Background(), "debug")
	log.Info(context.Background(), "info")

	assert.Zero(t, buf.Len())

	log.Error(context.Background(), "boom")
	assert.Contains(t, buf.String(), "boom")
}

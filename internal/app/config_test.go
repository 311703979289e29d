package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "parquet", cfg.SaveFormat)
	assert.Equal(t, "US/Eastern", cfg.ExchangeTZ)
	assert.Equal(t, "TRADES", cfg.WhatToShow)

	sc := cfg.SessionConfig()
	assert.Equal(t, "127.0.0.1", sc.Host)
	assert.Equal(t, 7496, sc.Port)
	assert.Equal(t, 100*time.Millisecond, sc.PollInterval)
	assert.Equal(t, 10*time.Second, sc.ConnectTimeout)
	assert.Equal(t, time.Second, sc.StabilizeDelay)
	assert.Equal(t, 2*time.Second, sc.JoinTimeout)

	mc := cfg.MinuteConfig()
	assert.Equal(t, 2, mc.ClientID)
	assert.Equal(t, 30*time.Second, mc.RequestTimeout)
	dc := cfg.DailyConfig()
	assert.Equal(t, 3, dc.ClientID)
	assert.Equal(t, 60*time.Second, dc.RequestTimeout)

	assert.Equal(t, filepath.Join("data", ".lastday.json"), cfg.ProgressPath("data"))
	assert.Equal(t, 730*24*time.Hour, cfg.Lookback())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("IB_PORT", "4002")
	t.Setenv("IB_DAILY_REQUEST_TIMEOUT", "0s")
	t.Setenv("PROFILE", "dev")
	t.Setenv("PROGRESS_DB", "/tmp/progress.db")
	t.Setenv("SCHEDULE_RUN_HOUR", "22")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4002, cfg.IB.Port)
	assert.Equal(t, time.Duration(0), cfg.DailyConfig().RequestTimeout)
	assert.Equal(t, "csv", cfg.SaveFormat)
	assert.Equal(t, "/tmp/progress.db", cfg.ProgressPath("data"))
	assert.Equal(t, 22, cfg.Schedule.RunHour)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("SCHEDULE_RUN_MINUTE", "75")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadZone(t *testing.T) {
	t.Setenv("EXCHANGE_TZ", "Mars/Olympus")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestSaveFormat(t *testing.T) {
	assert.Equal(t, "json", saveFormat(" JSON ", "dev"))
	assert.Equal(t, "csv", saveFormat("", "development"))
	assert.Equal(t, "parquet", saveFormat("", "prod"))
	assert.Equal(t, "parquet", saveFormat("", ""))
}

func TestProvidePartitionSaver(t *testing.T) {
	s, err := ProvidePartitionSaver(&Config{SaveFormat: "msgpack"})
	require.NoError(t, err)
	assert.Equal(t, "msgpack", s.Extension())

	_, err = ProvidePartitionSaver(&Config{SaveFormat: "xlsx"})
	assert.Error(t, err)
}

package timescale

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ib-history/internal/slogx"
)

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{DSN: "  "}, slogx.Discard())
	assert.Error(t, err)
}

func TestSchemaName(t *testing.T) {
	s, err := schemaName("")
	require.NoError(t, err)
	assert.Equal(t, "public", s)

	s, err = schemaName(" market ")
	require.NoError(t, err)
	assert.Equal(t, "market", s)

	_, err = schemaName("x; DROP TABLE y")
	assert.Error(t, err)
}

func TestQueries(t *testing.T) {
	q := upsertQuery("market.market_ohlc")
	assert.Contains(t, q, "INSERT INTO market.market_ohlc")
	assert.Contains(t, q, "ON CONFLICT (ts, asset, interval) DO UPDATE")
	assert.Contains(t, createTableQuery("public.market_ohlc"), "PRIMARY KEY (ts, asset, interval)")
}

func TestNilWriterClose(t *testing.T) {
	var w *Writer
	assert.NoError(t, w.Close())
}

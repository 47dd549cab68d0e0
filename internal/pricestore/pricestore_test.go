package pricestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbolt/ghb/internal/core"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2021-01-04,133.52,133.61,126.76,129.41,143301900
2021-01-05,128.89,131.74,128.43,131.01,97664900
2021-01-06,127.72,131.05,126.38,126.60,155088000
`

func writeCSV(t *testing.T, dir, ticker, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ticker+".csv"), []byte(content), 0644))
}

func TestCSVDir_History(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAPL", sampleCSV)

	series, err := NewCSVDir(dir).History(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, series, 3)

	first := series[0]
	assert.Equal(t, time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), first.Date)
	assert.InDelta(t, 129.41, first.Close, 1e-9)
	assert.EqualValues(t, 143301900, first.Volume)
}

func TestCSVDir_SortsAndDeduplicates(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "MSFT", `Date,Open,High,Low,Close,Volume
2021-01-06,1,1,1,3,100
2021-01-04,1,1,1,1,100
2021-01-04,1,1,1,9,100
2021-01-05,1,1,1,2,100
`)

	series, err := NewCSVDir(dir).History(context.Background(), "MSFT")
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.InDelta(t, 1, series[0].Close, 1e-9)
	assert.InDelta(t, 2, series[1].Close, 1e-9)
	assert.InDelta(t, 3, series[2].Close, 1e-9)
}

func TestCSVDir_MissingTicker(t *testing.T) {
	_, err := NewCSVDir(t.TempDir()).History(context.Background(), "GHOST")
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestCSVDir_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BAD", "Date,Open,High,Low,Close,Volume\nnot-a-date,1,1,1,1,1\n")

	_, err := NewCSVDir(dir).History(context.Background(), "BAD")
	assert.True(t, errors.Is(err, core.ErrStoreFailed))
}

func TestCSVDir_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "NOCLOSE", "Date,Open,High,Low,Volume\n2021-01-04,1,1,1,1\n")

	_, err := NewCSVDir(dir).History(context.Background(), "NOCLOSE")
	assert.True(t, errors.Is(err, core.ErrStoreFailed))
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	series := core.PriceSeries{
		{Date: time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Date: time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 200},
	}
	require.NoError(t, store.SaveSeries(ctx, "AAPL", series))

	got, err := store.History(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, series, got)

	tickers, err := store.Tickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, tickers)
}

func TestSQLiteStore_UpsertOverwrites(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	date := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSeries(ctx, "AAPL", core.PriceSeries{{Date: date, Close: 100, Volume: 1}}))
	require.NoError(t, store.SaveSeries(ctx, "AAPL", core.PriceSeries{{Date: date, Close: 101, Volume: 2}}))

	got, err := store.History(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 101, got[0].Close, 1e-9)
}

func TestSQLiteStore_MissingTicker(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.History(context.Background(), "GHOST")
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestPreload_BoundedWorkers(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAPL", sampleCSV)
	writeCSV(t, dir, "MSFT", sampleCSV)
	// NVDA intentionally missing: a bad ticker must not sink the load.

	universe := Preload(context.Background(), NewCSVDir(dir),
		[]string{"AAPL", "MSFT", "NVDA"}, 2, nil)

	require.Len(t, universe, 2)
	assert.Contains(t, universe, "AAPL")
	assert.Contains(t, universe, "MSFT")
	assert.NotContains(t, universe, "NVDA")
}

func TestLoadUniverse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.txt")
	content := "# megacaps\naapl\nMSFT\n\nAAPL\n#GOOG\nnvda\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tickers, err := LoadUniverse(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, tickers)
}

package pricestore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/finbolt/ghb/internal/core"
)

// CSVDir reads one CSV file per ticker from a directory. Files are named
// <TICKER>.csv with a Date,Open,High,Low,Close,Volume header, the layout
// the download cache writes.
type CSVDir struct {
	dir string
}

// Compile-time interface check.
var _ Provider = (*CSVDir)(nil)

// NewCSVDir creates a CSVDir provider rooted at dir.
func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{dir: dir}
}

// History loads and parses the ticker's CSV file.
func (c *CSVDir) History(_ context.Context, ticker string) (core.PriceSeries, error) {
	path := filepath.Join(c.dir, ticker+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s: no file at %s", ticker, path))
		}
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer f.Close()

	series, err := parseCSV(f)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("%s: %w", ticker, err))
	}
	if len(series) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s: empty file", ticker))
	}
	return sortSeries(series), nil
}

func parseCSV(r io.Reader) (core.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var series core.PriceSeries
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		date, err := time.Parse("2006-01-02", record[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", record[col["date"]], err)
		}
		point := core.PricePoint{Date: date.UTC()}
		for _, f := range []struct {
			name string
			dst  *float64
		}{
			{"open", &point.Open},
			{"high", &point.High},
			{"low", &point.Low},
			{"close", &point.Close},
		} {
			v, err := strconv.ParseFloat(record[col[f.name]], 64)
			if err != nil {
				return nil, fmt.Errorf("bad %s %q: %w", f.name, record[col[f.name]], err)
			}
			*f.dst = v
		}
		// Volume occasionally arrives as a float in vendor exports.
		vol, err := strconv.ParseFloat(record[col["volume"]], 64)
		if err != nil {
			return nil, fmt.Errorf("bad volume %q: %w", record[col["volume"]], err)
		}
		point.Volume = int64(vol)

		series = append(series, point)
	}
	return series, nil
}

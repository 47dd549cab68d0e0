// Package pricestore loads historical daily price data for the backtester.
// Two providers are supported: a directory of per-ticker CSV files and a
// SQLite bar database, the two formats the download/cache tooling writes.
package pricestore

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/finbolt/ghb/internal/core"
)

// Provider returns the full daily history for one ticker.
type Provider interface {
	History(ctx context.Context, ticker string) (core.PriceSeries, error)
}

// Preload fetches the whole universe ahead of a run with a bounded worker
// pool. The simulation itself is strictly sequential; this is the only
// concurrency in the system. Tickers that fail to load are logged and left
// out of the result.
func Preload(ctx context.Context, p Provider, tickers []string, workers int, log *zap.Logger) map[string]core.PriceSeries {
	if log == nil {
		log = zap.NewNop()
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > len(tickers) {
		workers = len(tickers)
	}

	type loaded struct {
		ticker string
		series core.PriceSeries
	}

	jobs := make(chan string)
	results := make(chan loaded)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobs {
				series, err := p.History(ctx, ticker)
				if err != nil {
					log.Warn("failed to load price history",
						zap.String("ticker", ticker), zap.Error(err))
					continue
				}
				results <- loaded{ticker: ticker, series: series}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, ticker := range tickers {
			select {
			case jobs <- ticker:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	universe := make(map[string]core.PriceSeries)
	for r := range results {
		universe[r.ticker] = r.series
	}
	return universe
}

// sortSeries orders bars ascending by date and drops exact duplicates,
// keeping the first occurrence.
func sortSeries(series core.PriceSeries) core.PriceSeries {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	out := series[:0]
	for _, p := range series {
		if len(out) > 0 && p.Date.Equal(out[len(out)-1].Date) {
			continue
		}
		out = append(out, p)
	}
	return out
}

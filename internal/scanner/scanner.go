// Package scanner applies the weekly-trend classifier across a stock
// universe and derives the buy/sell candidate lists the backtest driver
// consumes.
package scanner

import (
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/finbolt/ghb/internal/classifier"
	"github.com/finbolt/ghb/internal/core"
)

// DefaultMaxCandidates caps the ranked buy list when no distance filter
// bounds it.
const DefaultMaxCandidates = 20

// Table is the result of one universe scan: one signal per classifiable
// ticker, in sorted-ticker order.
type Table []core.Signal

// Scanner classifies every ticker in a universe as of a date.
type Scanner struct {
	params classifier.Params
	log    *zap.Logger
}

// New creates a Scanner. A nil logger disables scan logging.
func New(params classifier.Params, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{params: params, log: log}
}

// Scan classifies the whole universe as of asOf. Tickers with insufficient
// history or malformed data are logged and omitted; a scan never fails on
// a single bad ticker. Signals are emitted in sorted-ticker order so the
// table is deterministic for a fixed universe.
func (s *Scanner) Scan(universe map[string]core.PriceSeries, asOf time.Time) Table {
	tickers := make([]string, 0, len(universe))
	for ticker := range universe {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	table := make(Table, 0, len(tickers))
	for _, ticker := range tickers {
		sig, err := classifier.Classify(ticker, universe[ticker], asOf, s.params)
		if err != nil {
			if errors.Is(err, core.ErrInsufficientHistory) {
				s.log.Debug("skipping ticker", zap.String("ticker", ticker), zap.Error(err))
			} else {
				s.log.Warn("classification failed", zap.String("ticker", ticker), zap.Error(err))
			}
			continue
		}
		table = append(table, sig)
	}
	return table
}

// Lookup returns the signal for a ticker, if present.
func (t Table) Lookup(ticker string) (core.Signal, bool) {
	for _, sig := range t {
		if sig.Ticker == ticker {
			return sig, true
		}
	}
	return core.Signal{}, false
}

// SellCandidates returns every N2 signal. All are actioned, so no ranking
// is applied.
func (t Table) SellCandidates() []core.Signal {
	var out []core.Signal
	for _, sig := range t {
		if sig.State == core.StateN2 {
			out = append(out, sig)
		}
	}
	return out
}

// BuyCandidates returns the P1 signals ranked by rate of change,
// strongest first. When maxDistance is positive, only signals within that
// percentage of the moving average qualify (the risk filter). When
// maxCount is positive, the ranked list is truncated to that many.
//
// The sort is stable over the table's sorted-ticker order, so equal ROC
// values rank alphabetically. That tie-break is arbitrary but fixed, which
// is what reproducibility requires.
func (t Table) BuyCandidates(maxDistance float64, maxCount int) []core.Signal {
	var out []core.Signal
	for _, sig := range t {
		if sig.State != core.StateP1 {
			continue
		}
		if maxDistance > 0 && sig.Distance >= maxDistance {
			continue
		}
		out = append(out, sig)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ROC > out[j].ROC
	})

	if maxCount > 0 && len(out) > maxCount {
		out = out[:maxCount]
	}
	return out
}

// Package backtest replays the weekly-trend strategy over historical
// price data, producing a reproducible trade log, equity curve, and
// performance summary.
package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finbolt/ghb/internal/core"
	"github.com/finbolt/ghb/internal/ledger"
	"github.com/finbolt/ghb/internal/scanner"
)

// Driver runs one strategy over one historical period. Each Run builds a
// fresh ledger, so a driver can be reused across runs but never shared
// across goroutines mid-run.
type Driver struct {
	scanner *scanner.Scanner
	cfg     Config
	obs     Observer
}

// New creates a Driver, failing fast on an invalid configuration.
func New(sc *scanner.Scanner, cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		scanner: sc,
		cfg:     cfg,
		obs:     NopObserver{},
	}, nil
}

// SetObserver installs a progress observer. Nil restores the no-op.
func (d *Driver) SetObserver(obs Observer) {
	if obs == nil {
		obs = NopObserver{}
	}
	d.obs = obs
}

// Run replays the schedule against the universe. Each schedule date is one
// simulated week: scan, mark to market, exits, entries, equity snapshot.
// Exits always complete before the first entry so freed capital and slots
// are available in the same period; that ordering is load-bearing and must
// stay sequential.
func (d *Driver) Run(ctx context.Context, universe map[string]core.PriceSeries, schedule []time.Time) (*Result, error) {
	book, err := ledger.New(d.cfg.Ledger)
	if err != nil {
		return nil, err
	}

	for _, refDate := range schedule {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		execDate := refDate.AddDate(0, 0, d.cfg.ExecutionLagDays)

		table := d.scanner.Scan(universe, refDate)
		d.obs.PeriodStart(refDate, len(table))

		// An empty scan still snapshots equity; it is a data gap, not an
		// error.
		if len(table) > 0 {
			book.MarkToMarket(table)
			d.runExits(book, table, execDate)
			d.runEntries(book, table, execDate)
		}

		book.RecordEquity(execDate)
		if eq, ok := book.LastEquity(); ok {
			d.obs.PeriodEnd(refDate, eq)
		}
	}

	result := &Result{
		RunID:   uuid.NewString(),
		Periods: len(schedule),
		Trades:  book.Trades(),
		Equity:  book.Equity(),
		Summary: Summarize(book),
	}
	if len(schedule) > 0 {
		result.StartDate = schedule[0]
		result.EndDate = schedule[len(schedule)-1]
	}
	return result, nil
}

// runExits closes every held position the scan classified as a downtrend.
func (d *Driver) runExits(book *ledger.Ledger, table scanner.Table, execDate time.Time) {
	for _, sig := range table.SellCandidates() {
		if !book.Has(sig.Ticker) {
			continue
		}
		if book.Close(sig.Ticker, execDate, sig.Close, sig.State, d.cfg.SellSlippage) {
			d.notifyLastTrade(book, false)
		}
	}
}

// runEntries works through the ranked buy list. A held ticker is skipped;
// a full book ends the pass outright, so lower-ranked candidates are never
// tried out of order.
func (d *Driver) runEntries(book *ledger.Ledger, table scanner.Table, execDate time.Time) {
	candidates := table.BuyCandidates(d.cfg.MaxSupportDistance, d.cfg.MaxCandidates)
	for _, sig := range candidates {
		if book.Has(sig.Ticker) {
			continue
		}
		if !book.CanOpen() {
			break
		}
		opened := book.Open(ledger.OpenRequest{
			Ticker:              sig.Ticker,
			Date:                execDate,
			SignalPrice:         sig.Close,
			EntryState:          sig.State,
			Slippage:            d.cfg.BuySlippage,
			DistanceFromSupport: sig.Distance,
			RiskAdjusted:        d.cfg.RiskAdjustedSizing,
		})
		if opened {
			d.notifyLastTrade(book, true)
		}
	}
}

func (d *Driver) notifyLastTrade(book *ledger.Ledger, opened bool) {
	last, ok := book.LastTrade()
	if !ok {
		return
	}
	if opened {
		d.obs.TradeOpened(last)
	} else {
		d.obs.TradeClosed(last)
	}
}

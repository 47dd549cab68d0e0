// Package classifier implements the GHB weekly-trend state machine: a
// deterministic mapping from a price history to one of four discrete
// trading states (P1, P2, N1, N2).
package classifier

import (
	"fmt"
	"time"

	"github.com/finbolt/ghb/internal/core"
	"github.com/finbolt/ghb/internal/indicator"
)

// Params holds the classification thresholds. The values are the strategy's
// published constants; they are exposed here so parameter sweeps can vary
// them without touching the classification logic.
type Params struct {
	// MAPeriod is the long moving-average lookback in trading days.
	MAPeriod int
	// ROCPeriod is the momentum lookback in trading days.
	ROCPeriod int
	// ROCThreshold is the minimum rate of change (percent) for P1 momentum.
	ROCThreshold float64
	// DistanceThreshold is the minimum extension above the moving average
	// (percent) that also qualifies as P1 momentum.
	DistanceThreshold float64
	// ExitThreshold is the distance below the moving average (percent,
	// negative) separating a shallow pullback (N1) from a downtrend (N2).
	ExitThreshold float64
}

// DefaultParams returns the standard GHB thresholds.
func DefaultParams() Params {
	return Params{
		MAPeriod:          200,
		ROCPeriod:         20,
		ROCThreshold:      5,
		DistanceThreshold: 10,
		ExitThreshold:     -5,
	}
}

// Validate checks the parameters for usability.
func (p Params) Validate() error {
	if p.MAPeriod <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("ma period must be positive, got %d", p.MAPeriod))
	}
	if p.ROCPeriod <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("roc period must be positive, got %d", p.ROCPeriod))
	}
	return nil
}

// Classify evaluates one ticker as of one date. The series is truncated to
// bars at or before asOf so the classifier can never look ahead. Fails with
// ErrInsufficientHistory when fewer than MAPeriod bars are available.
//
// Classify is a pure function: identical inputs always produce identical
// signals, which is what makes backtests reproducible.
func Classify(ticker string, series core.PriceSeries, asOf time.Time, params Params) (core.Signal, error) {
	visible := series.Truncate(asOf)
	if len(visible) < params.MAPeriod {
		return core.Signal{}, core.WrapError(core.ErrInsufficientHistory,
			fmt.Errorf("%s: %d bars as of %s, need %d", ticker, len(visible), asOf.Format("2006-01-02"), params.MAPeriod))
	}

	closes := visible.Closes()
	last := visible.Last()

	ma := indicator.LastSMA(closes, params.MAPeriod)
	roc := indicator.ROC(closes, params.ROCPeriod)
	dist := indicator.PercentDistance(last.Close, ma)

	return core.Signal{
		Ticker:   ticker,
		Date:     last.Date,
		Close:    last.Close,
		MA:       ma,
		ROC:      roc,
		Distance: dist,
		State:    classify(last.Close, ma, roc, dist, params),
	}, nil
}

// classify assigns exactly one of the four states. The branches are total:
// every (close, ma, roc, dist) combination lands in one state.
func classify(close, ma, roc, dist float64, p Params) core.State {
	if ma <= 0 {
		// A degenerate average only happens on malformed data. Classify
		// as a downtrend instead of raising so a bad ticker cannot abort
		// a simulation.
		return core.StateN2
	}
	if close > ma {
		if roc > p.ROCThreshold || dist > p.DistanceThreshold {
			return core.StateP1
		}
		return core.StateP2
	}
	if dist > p.ExitThreshold {
		return core.StateN1
	}
	return core.StateN2
}

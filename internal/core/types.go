package core

import "time"

// State is the four-valued weekly-trend classification.
type State string

const (
	// StateP1 is a strong bullish trend: price above the long moving
	// average with momentum. Entry candidate.
	StateP1 State = "P1"
	// StateP2 is a bullish consolidation: above the moving average,
	// momentum faded. Hold.
	StateP2 State = "P2"
	// StateN1 is a shallow pullback just below the moving average. Hold.
	StateN1 State = "N1"
	// StateN2 is a confirmed downtrend. Exit candidate.
	StateN2 State = "N2"
)

// IsBullish reports whether the state is above the long moving average.
func (s State) IsBullish() bool {
	return s == StateP1 || s == StateP2
}

// Action is a ledger trade direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// PricePoint is one daily OHLCV bar. Immutable once loaded.
type PricePoint struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// PriceSeries is a daily price history for one ticker, ordered ascending
// by date with no duplicate dates.
type PriceSeries []PricePoint

// Truncate returns the prefix of the series with dates at or before asOf.
// The classifier must never see bars after its evaluation date.
func (s PriceSeries) Truncate(asOf time.Time) PriceSeries {
	// Series are ascending, so binary-search the cut point.
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid].Date.After(asOf) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return s[:lo]
}

// Closes extracts the closing prices.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the final bar. Callers must check the series is non-empty.
func (s PriceSeries) Last() PricePoint {
	return s[len(s)-1]
}

// Signal is the classification of one ticker as of one date. Derived
// entirely from a PriceSeries; never mutated once produced.
type Signal struct {
	Ticker   string
	Date     time.Time
	Close    float64
	MA       float64 // long simple moving average
	ROC      float64 // rate of change, percent
	Distance float64 // percent distance from the moving average
	State    State
}

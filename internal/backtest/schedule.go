package backtest

import (
	"time"

	"github.com/finbolt/ghb/internal/core"
)

// DefaultCoverage is the fraction of the universe that must have enough
// history before a Friday qualifies as a simulation date.
const DefaultCoverage = 0.8

// Fridays returns every Friday in [start, end].
func Fridays(start, end time.Time) []time.Time {
	var out []time.Time
	d := start
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, 1)
	}
	for !d.After(end) {
		out = append(out, d)
		d = d.AddDate(0, 0, 7)
	}
	return out
}

// Schedule builds the list of simulation dates: every Friday in the range
// where at least coverage (0..1) of the universe has minHistory bars at or
// before that date. The driver takes the result as an injected parameter,
// keeping calendar logic out of the simulation loop.
func Schedule(universe map[string]core.PriceSeries, start, end time.Time, minHistory int, coverage float64) []time.Time {
	if coverage <= 0 {
		coverage = DefaultCoverage
	}

	var out []time.Time
	for _, friday := range Fridays(start, end) {
		covered := 0
		for _, series := range universe {
			if len(series.Truncate(friday)) >= minHistory {
				covered++
			}
		}
		if len(universe) > 0 && float64(covered) >= coverage*float64(len(universe)) {
			out = append(out, friday)
		}
	}
	return out
}

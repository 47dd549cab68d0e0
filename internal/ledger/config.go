package ledger

import (
	"fmt"

	"github.com/finbolt/ghb/internal/core"
)

// Config holds the capital-allocation rules for one backtest run.
type Config struct {
	// StartingCash is the initial capital in dollars.
	StartingCash float64
	// PositionSizePct is the percent of starting cash allocated per new
	// position when no per-ticker override applies. Sizing off starting
	// cash, not current equity, keeps position sizes stable across a
	// volatile run.
	PositionSizePct float64
	// MaxPositions caps simultaneously open positions.
	MaxPositions int
	// Allocations optionally overrides PositionSizePct per ticker, in
	// percent of starting cash. Tickers without an override split the
	// remaining percentage evenly across the remaining open slots.
	Allocations map[string]float64
}

// Validate fails fast on a misconfigured ledger before any simulation work
// is wasted.
func (c Config) Validate() error {
	if c.StartingCash <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("starting cash must be positive, got %.2f", c.StartingCash))
	}
	if c.MaxPositions <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max positions must be positive, got %d", c.MaxPositions))
	}
	var total float64
	for _, pct := range c.Allocations {
		total += pct
	}
	if total > 100 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("allocation overrides sum to %.2f%%, cannot exceed 100%%", total))
	}
	return nil
}

// allocationPct returns the percent of starting cash to allocate to ticker.
func (c Config) allocationPct(ticker string) float64 {
	if len(c.Allocations) == 0 {
		return c.PositionSizePct
	}
	if pct, ok := c.Allocations[ticker]; ok {
		return pct
	}
	slots := c.MaxPositions - len(c.Allocations)
	if slots <= 0 {
		return 0
	}
	var used float64
	for _, pct := range c.Allocations {
		used += pct
	}
	return (100 - used) / float64(slots)
}

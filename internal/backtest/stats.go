package backtest

import (
	"math"

	"github.com/finbolt/ghb/internal/core"
	"github.com/finbolt/ghb/internal/ledger"
)

// weeksPerYear annualizes weekly-period statistics.
const weeksPerYear = 52.0

// Summarize aggregates a finished ledger's trade log and equity curve into
// a Summary. It is read-only and idempotent: calling it twice on the same
// ledger yields the same result. Empty logs produce zeroed stats, never a
// panic.
func Summarize(book *ledger.Ledger) Summary {
	s := Summary{
		StartingValue: book.StartingCash(),
		FinalValue:    book.StartingCash(),
	}

	equity := book.Equity()
	if len(equity) > 0 {
		s.StartDate = equity[0].Date
		s.EndDate = equity[len(equity)-1].Date
		s.TotalWeeks = len(equity)
		s.Years = float64(len(equity)) / weeksPerYear
		s.FinalValue = equity[len(equity)-1].PortfolioValue

		s.TotalReturnPct = (s.FinalValue - s.StartingValue) / s.StartingValue * 100
		s.CAGRPct = cagr(s.StartingValue, s.FinalValue, s.Years)
		s.MaxDrawdownPct = maxDrawdown(equity)
		s.SharpeRatio, s.SortinoRatio = riskRatios(equity)
	}

	summarizeTrades(&s, book.Trades())
	return s
}

// cagr is the compound annual growth rate in percent.
func cagr(start, final, years float64) float64 {
	if start <= 0 || final <= 0 || years <= 0 {
		return 0
	}
	return (math.Pow(final/start, 1/years) - 1) * 100
}

// maxDrawdown is the worst peak-to-trough decline of the equity curve, in
// percent. Non-positive; more negative is worse.
func maxDrawdown(equity []ledger.EquityPoint) float64 {
	var worst float64
	peak := math.Inf(-1)
	for _, pt := range equity {
		if pt.PortfolioValue > peak {
			peak = pt.PortfolioValue
		}
		if peak > 0 {
			dd := (pt.PortfolioValue - peak) / peak * 100
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// riskRatios computes annualized Sharpe and Sortino from week-over-week
// equity changes. Sortino divides by downside deviation only and is +Inf
// when no period lost money.
func riskRatios(equity []ledger.EquityPoint) (sharpe, sortino float64) {
	if len(equity) < 2 {
		return 0, 0
	}

	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].PortfolioValue
		if prev <= 0 {
			continue
		}
		returns = append(returns, equity[i].PortfolioValue/prev-1)
	}
	if len(returns) < 2 {
		return 0, 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	var negative []float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
		if r < 0 {
			negative = append(negative, r)
		}
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	annualMean := mean * weeksPerYear
	if stdDev > 0 {
		sharpe = annualMean / (stdDev * math.Sqrt(weeksPerYear))
	}

	if len(negative) == 0 {
		return sharpe, math.Inf(1)
	}
	var downVar float64
	for _, r := range negative {
		downVar += r * r
	}
	downDev := math.Sqrt(downVar / float64(len(negative)))
	if downDev > 0 {
		sortino = annualMean / (downDev * math.Sqrt(weeksPerYear))
	}
	return sharpe, sortino
}

// summarizeTrades fills the trade-log statistics in place.
func summarizeTrades(s *Summary, trades []ledger.Trade) {
	var winSum, lossSum, winDollars, lossDollars float64
	var streakWins, streakLosses int
	best := math.Inf(-1)
	worst := math.Inf(1)

	for _, t := range trades {
		if t.Action != core.ActionSell {
			continue
		}
		s.TotalTrades++
		s.AvgTradePct += t.PnLPct

		if t.PnL > 0 {
			s.WinningTrades++
			winSum += t.PnLPct
			winDollars += t.PnL
			streakWins++
			streakLosses = 0
			if streakWins > s.MaxConsecutiveWins {
				s.MaxConsecutiveWins = streakWins
			}
		} else {
			s.LosingTrades++
			lossSum += t.PnLPct
			lossDollars += t.PnL
			streakLosses++
			streakWins = 0
			if streakLosses > s.MaxConsecutiveLosses {
				s.MaxConsecutiveLosses = streakLosses
			}
		}

		if t.PnLPct > best {
			best = t.PnLPct
			s.BestTradePct = t.PnLPct
			s.BestTradeTicker = t.Ticker
		}
		if t.PnLPct < worst {
			worst = t.PnLPct
			s.WorstTradePct = t.PnLPct
			s.WorstTradeTicker = t.Ticker
		}
	}

	if s.TotalTrades == 0 {
		return
	}

	s.AvgTradePct /= float64(s.TotalTrades)
	s.WinRatePct = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	if s.WinningTrades > 0 {
		s.AvgWinPct = winSum / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AvgLossPct = lossSum / float64(s.LosingTrades)
		s.ProfitFactor = winDollars / math.Abs(lossDollars)
	} else {
		s.ProfitFactor = math.Inf(1)
	}
}

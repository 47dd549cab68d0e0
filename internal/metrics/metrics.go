// Package metrics exposes Prometheus instrumentation for backtest runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/finbolt/ghb/internal/ledger"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	periodsTotal   prometheus.Counter
	tradesTotal    *prometheus.CounterVec
	signalsScanned prometheus.Counter
	portfolioValue prometheus.Gauge
	openPositions  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghb_backtests_total",
				Help: "Total number of backtest runs",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ghb_backtest_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		periodsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ghb_periods_simulated_total",
				Help: "Total number of simulated weekly periods",
			},
		),
		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghb_trades_total",
				Help: "Total number of simulated trades",
			},
			[]string{"action"},
		),
		signalsScanned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ghb_signals_scanned_total",
				Help: "Total number of signals produced by universe scans",
			},
		),
		portfolioValue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ghb_portfolio_value",
				Help: "Portfolio value of the most recent simulated period",
			},
		),
		openPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ghb_open_positions",
				Help: "Open position count of the most recent simulated period",
			},
		),
	}

	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.periodsTotal)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.signalsScanned)
	reg.MustRegister(r.portfolioValue)
	reg.MustRegister(r.openPositions)

	return r
}

// RecordRun counts a finished run and its wall-clock duration.
func (r *Registry) RecordRun(status string, elapsed time.Duration) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(elapsed.Seconds())
}

// Observer adapts a Registry to the backtest driver's observer interface.
type Observer struct {
	reg *Registry
}

// NewObserver creates an Observer feeding the given registry.
func NewObserver(reg *Registry) *Observer {
	return &Observer{reg: reg}
}

func (o *Observer) PeriodStart(_ time.Time, signals int) {
	o.reg.periodsTotal.Inc()
	o.reg.signalsScanned.Add(float64(signals))
}

func (o *Observer) TradeOpened(t ledger.Trade) {
	o.reg.tradesTotal.WithLabelValues(string(t.Action)).Inc()
}

func (o *Observer) TradeClosed(t ledger.Trade) {
	o.reg.tradesTotal.WithLabelValues(string(t.Action)).Inc()
}

func (o *Observer) PeriodEnd(_ time.Time, eq ledger.EquityPoint) {
	o.reg.portfolioValue.Set(eq.PortfolioValue)
	o.reg.openPositions.Set(float64(eq.PositionCount))
}

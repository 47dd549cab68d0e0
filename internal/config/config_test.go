package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/finbolt/ghb/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
backtest:
  starting_cash: 110000
  position_size_pct: 8
  max_positions: 12
  position_allocations:
    AAPL: 20

data:
  source: sqlite
  sqlite_path: "/tmp/ghb/bars.db"
  universe_file: "/tmp/ghb/universe.txt"

output:
  type: localfs
  path: "/tmp/ghb/reports"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backtest.StartingCash != 110000 {
		t.Errorf("expected starting cash 110000, got %f", cfg.Backtest.StartingCash)
	}
	if cfg.Backtest.PositionAllocations["AAPL"] != 20 {
		t.Errorf("expected AAPL allocation 20, got %f", cfg.Backtest.PositionAllocations["AAPL"])
	}
	if cfg.Data.Source != "sqlite" {
		t.Errorf("expected sqlite source, got %s", cfg.Data.Source)
	}

	// Unset keys keep their defaults.
	if cfg.Backtest.BuySlippage != 1.015 {
		t.Errorf("expected default buy slippage 1.015, got %f", cfg.Backtest.BuySlippage)
	}
	if cfg.Classifier.MAPeriod != 200 {
		t.Errorf("expected default ma period 200, got %d", cfg.Classifier.MAPeriod)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Backtest.MaxPositions != 10 {
		t.Errorf("expected default max positions 10, got %d", cfg.Backtest.MaxPositions)
	}
	if cfg.Backtest.SellSlippage != 0.99 {
		t.Errorf("expected default sell slippage 0.99, got %f", cfg.Backtest.SellSlippage)
	}
	if cfg.Data.Coverage != 0.8 {
		t.Errorf("expected default coverage 0.8, got %f", cfg.Data.Coverage)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Defaults()
		cfg.Data.CSVDir = "/tmp/data"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"negative starting cash", func(c *Config) { c.Backtest.StartingCash = -1 }, true},
		{"zero max positions", func(c *Config) { c.Backtest.MaxPositions = 0 }, true},
		{"allocations over 100", func(c *Config) {
			c.Backtest.PositionAllocations = map[string]float64{"A": 80, "B": 30}
		}, true},
		{"bad data source", func(c *Config) { c.Data.Source = "ftp" }, true},
		{"csv source without dir", func(c *Config) { c.Data.CSVDir = "" }, true},
		{"sqlite source without path", func(c *Config) {
			c.Data.Source = "sqlite"
			c.Data.SQLitePath = ""
		}, true},
		{"s3 output without bucket", func(c *Config) { c.Output.Type = "s3" }, true},
		{"coverage out of range", func(c *Config) { c.Data.Coverage = 1.5 }, true},
		{"zero ma period", func(c *Config) { c.Classifier.MAPeriod = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, core.ErrConfigInvalid) && !errors.Is(err, core.ErrConfigMissing) {
				t.Errorf("expected a structured config error, got %v", err)
			}
		})
	}
}

func TestConfig_BacktestConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Backtest.StartingCash = 50000
	cfg.Backtest.UseRiskAdjustedSizing = true

	bt := cfg.BacktestConfig()
	if bt.Ledger.StartingCash != 50000 {
		t.Errorf("ledger starting cash = %f, want 50000", bt.Ledger.StartingCash)
	}
	if !bt.RiskAdjustedSizing {
		t.Error("risk adjusted sizing should carry through")
	}
	if err := bt.Validate(); err != nil {
		t.Errorf("assembled config should validate: %v", err)
	}
}

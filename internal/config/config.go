package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/finbolt/ghb/internal/backtest"
	"github.com/finbolt/ghb/internal/classifier"
	"github.com/finbolt/ghb/internal/core"
	"github.com/finbolt/ghb/internal/export"
	"github.com/finbolt/ghb/internal/ledger"
)

type Config struct {
	Backtest   BacktestConfig   `mapstructure:"backtest"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Data       DataConfig       `mapstructure:"data"`
	Output     OutputConfig     `mapstructure:"output"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type BacktestConfig struct {
	StartingCash          float64            `mapstructure:"starting_cash"`
	PositionSizePct       float64            `mapstructure:"position_size_pct"`
	MaxPositions          int                `mapstructure:"max_positions"`
	PositionAllocations   map[string]float64 `mapstructure:"position_allocations"`
	BuySlippage           float64            `mapstructure:"buy_slippage"`
	SellSlippage          float64            `mapstructure:"sell_slippage"`
	MaxSupportDistance    float64            `mapstructure:"max_support_distance"`
	MaxCandidates         int                `mapstructure:"max_candidates"`
	UseRiskAdjustedSizing bool               `mapstructure:"use_risk_adjusted_sizing"`
	ExecutionLagDays      int                `mapstructure:"execution_lag_days"`
}

type ClassifierConfig struct {
	MAPeriod          int     `mapstructure:"ma_period"`
	ROCPeriod         int     `mapstructure:"roc_period"`
	ROCThreshold      float64 `mapstructure:"roc_threshold"`
	DistanceThreshold float64 `mapstructure:"distance_threshold"`
	ExitThreshold     float64 `mapstructure:"exit_threshold"`
}

type DataConfig struct {
	// Source is "csv" or "sqlite".
	Source       string  `mapstructure:"source"`
	CSVDir       string  `mapstructure:"csv_dir"`
	SQLitePath   string  `mapstructure:"sqlite_path"`
	UniverseFile string  `mapstructure:"universe_file"`
	Workers      int     `mapstructure:"workers"`
	MinHistory   int     `mapstructure:"min_history"`
	Coverage     float64 `mapstructure:"coverage"`
}

type OutputConfig struct {
	// Type is "localfs" or "s3".
	Type string   `mapstructure:"type"`
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	PushPath string `mapstructure:"push_path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	params := classifier.DefaultParams()
	return &Config{
		Backtest: BacktestConfig{
			StartingCash:     100000,
			PositionSizePct:  10,
			MaxPositions:     10,
			BuySlippage:      1.015,
			SellSlippage:     0.99,
			MaxCandidates:    20,
			ExecutionLagDays: 3,
		},
		Classifier: ClassifierConfig{
			MAPeriod:          params.MAPeriod,
			ROCPeriod:         params.ROCPeriod,
			ROCThreshold:      params.ROCThreshold,
			DistanceThreshold: params.DistanceThreshold,
			ExitThreshold:     params.ExitThreshold,
		},
		Data: DataConfig{
			Source:     "csv",
			Workers:    8,
			MinHistory: params.MAPeriod,
			Coverage:   backtest.DefaultCoverage,
		},
		Output: OutputConfig{
			Type: "localfs",
			Path: "reports",
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.BacktestConfig().Validate(); err != nil {
		return err
	}
	if err := c.ClassifierParams().Validate(); err != nil {
		return err
	}

	switch c.Data.Source {
	case "csv":
		if c.Data.CSVDir == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("data.csv_dir is required for the csv source"))
		}
	case "sqlite":
		if c.Data.SQLitePath == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("data.sqlite_path is required for the sqlite source"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data.source must be csv or sqlite, got %q", c.Data.Source))
	}

	switch c.Output.Type {
	case "localfs":
		if c.Output.Path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("output.path is required for localfs output"))
		}
	case "s3":
		if c.Output.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("output.s3.bucket is required for s3 output"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("output.type must be localfs or s3, got %q", c.Output.Type))
	}

	if c.Data.Coverage < 0 || c.Data.Coverage > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data.coverage must be within [0, 1], got %.2f", c.Data.Coverage))
	}
	return nil
}

// BacktestConfig assembles the driver configuration.
func (c *Config) BacktestConfig() backtest.Config {
	return backtest.Config{
		Ledger: ledger.Config{
			StartingCash:    c.Backtest.StartingCash,
			PositionSizePct: c.Backtest.PositionSizePct,
			MaxPositions:    c.Backtest.MaxPositions,
			Allocations:     c.Backtest.PositionAllocations,
		},
		BuySlippage:        c.Backtest.BuySlippage,
		SellSlippage:       c.Backtest.SellSlippage,
		MaxSupportDistance: c.Backtest.MaxSupportDistance,
		MaxCandidates:      c.Backtest.MaxCandidates,
		RiskAdjustedSizing: c.Backtest.UseRiskAdjustedSizing,
		ExecutionLagDays:   c.Backtest.ExecutionLagDays,
	}
}

// ClassifierParams assembles the classifier thresholds.
func (c *Config) ClassifierParams() classifier.Params {
	return classifier.Params{
		MAPeriod:          c.Classifier.MAPeriod,
		ROCPeriod:         c.Classifier.ROCPeriod,
		ROCThreshold:      c.Classifier.ROCThreshold,
		DistanceThreshold: c.Classifier.DistanceThreshold,
		ExitThreshold:     c.Classifier.ExitThreshold,
	}
}

// Storage builds the configured export backend.
func (c *Config) Storage() (export.Storage, error) {
	switch c.Output.Type {
	case "s3":
		return export.NewS3(export.S3Config{
			Bucket:    c.Output.S3.Bucket,
			Endpoint:  c.Output.S3.Endpoint,
			Region:    c.Output.S3.Region,
			AccessKey: c.Output.S3.AccessKey,
			SecretKey: c.Output.S3.SecretKey,
			Prefix:    c.Output.S3.Prefix,
		})
	default:
		return export.NewLocalFS(c.Output.Path)
	}
}

package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/web3gaoyutang/snapback/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DataSource struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"data_source"`
	Strategy struct {
		LookbackDays       int                 `yaml:"lookback_days"`
		LimitUpThreshold   float64             `yaml:"limit_up_threshold"`
		LotSize            int                 `yaml:"lot_size"`
		ShortfallTolerance float64             `yaml:"shortfall_tolerance"`
		Stages             []model.StageConfig `yaml:"stages"`
	} `yaml:"strategy"`
	Trade struct {
		Mode        string `yaml:"mode"` // "paper" or "gateway"
		GatewayURL  string `yaml:"gateway_url"`
		APIKey      string `yaml:"api_key"`
		PendingFile string `yaml:"pending_file"`
	} `yaml:"trade"`
	Schedule struct {
		PreCloseCron string `yaml:"pre_close_cron"`
		PostOpenCron string `yaml:"post_open_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SNAPBACK_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("BARS_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("BARS_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("TRADE_MODE"); v != "" {
		cfg.Trade.Mode = v
	}
	if v := os.Getenv("TRADE_GATEWAY_URL"); v != "" {
		cfg.Trade.GatewayURL = v
	}
	if v := os.Getenv("TRADE_API_KEY"); v != "" {
		cfg.Trade.APIKey = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LIMIT_UP_THRESHOLD"); v != "" {
		var th float64
		if _, err := fmt.Sscanf(v, "%f", &th); err == nil {
			cfg.Strategy.LimitUpThreshold = th
		}
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		var d int
		if _, err := fmt.Sscanf(v, "%d", &d); err == nil {
			cfg.Strategy.LookbackDays = d
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Strategy.LookbackDays == 0 {
		cfg.Strategy.LookbackDays = 60
	}
	if cfg.Strategy.LimitUpThreshold == 0 {
		// 9.5% catches genuine limit-ups on a 10%-limit market; real closes
		// often land a touch under the exact limit.
		cfg.Strategy.LimitUpThreshold = 0.095
	}
	if cfg.Strategy.LotSize == 0 {
		cfg.Strategy.LotSize = 100
	}
	if cfg.Strategy.ShortfallTolerance == 0 {
		cfg.Strategy.ShortfallTolerance = 0.05
	}
	if len(cfg.Strategy.Stages) == 0 {
		cfg.Strategy.Stages = []model.StageConfig{
			{FibStart: 0.500, FibEnd: 0.618, PositionRatio: 0.70, OrderCount: 5},
			{FibStart: 0.618, FibEnd: 0.700, PositionRatio: 0.30, OrderCount: 3},
		}
	}
	if cfg.Trade.Mode == "" {
		cfg.Trade.Mode = "paper"
	}
	if cfg.Trade.PendingFile == "" {
		cfg.Trade.PendingFile = "data/pending_orders.json"
	}
	if cfg.Schedule.PreCloseCron == "" {
		cfg.Schedule.PreCloseCron = "0 57 14 * * 1-5" // 3 minutes before the 15:00 close
	}
	if cfg.Schedule.PostOpenCron == "" {
		cfg.Schedule.PostOpenCron = "0 33 9 * * 1-5" // 3 minutes after the 09:30 open
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/snapback.db"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Strategy.LookbackDays <= 0 {
		return fmt.Errorf("strategy.lookback_days must be positive")
	}
	if c.Strategy.LimitUpThreshold <= 0 || c.Strategy.LimitUpThreshold >= 1 {
		return fmt.Errorf("strategy.limit_up_threshold must be in (0, 1)")
	}
	if c.Strategy.LotSize < 1 {
		return fmt.Errorf("strategy.lot_size must be >= 1")
	}
	sum := 0.0
	for i, s := range c.Strategy.Stages {
		if s.OrderCount < 1 {
			return fmt.Errorf("strategy.stages[%d].order_count must be >= 1", i)
		}
		if s.PositionRatio <= 0 {
			return fmt.Errorf("strategy.stages[%d].position_ratio must be positive", i)
		}
		sum += s.PositionRatio
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("strategy.stages position ratios must sum to 1.0, got %v", sum)
	}
	if c.Trade.Mode != "paper" && c.Trade.Mode != "gateway" {
		return fmt.Errorf("trade.mode must be \"paper\" or \"gateway\", got %q", c.Trade.Mode)
	}
	if c.Trade.Mode == "gateway" && c.Trade.GatewayURL == "" {
		return fmt.Errorf("trade.gateway_url is required in gateway mode")
	}
	return nil
}

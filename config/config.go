// Package config holds the runtime configuration: the immutable simulation
// parameter bundle plus the optional sink and observability settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Sim is the flat parameter record governing strategy, risk, and both
// execution models. A value is copied into every component at construction;
// nothing mutates it mid-run.
type Sim struct {
	// Strategy & features
	KVol        float64 `yaml:"k_vol"`
	VolLookback int     `yaml:"vol_lookback"`
	KInv        float64 `yaml:"k_inv"`
	KMom        float64 `yaml:"k_mom"`
	MomLookback int     `yaml:"mom_lookback"`

	// Risk knobs
	VolBrakeMult float64 `yaml:"vol_brake_mult"`
	InvCap       float64 `yaml:"inv_cap"`
	DDStop       float64 `yaml:"dd_stop"`
	WarmupBars   int     `yaml:"warmup_bars"`

	// Execution frictions
	TickSize    float64 `yaml:"tick_size"`
	BaseSize    float64 `yaml:"base_size"`
	FeeBps      float64 `yaml:"fee_bps"`
	LatencySec  float64 `yaml:"latency_sec"`
	SlippageBps float64 `yaml:"slippage_bps"`
	AdverseBias float64 `yaml:"adverse_bias"`
	VolCapFrac  float64 `yaml:"vol_cap_frac"`
	RefPrice    string  `yaml:"ref_price"`
	Seed        int64   `yaml:"seed"`

	// Analytics
	MarkoutHorizons []int `yaml:"markout_horizons"`

	// LOB / queue simulation
	UseLOB         bool    `yaml:"use_lob"`
	LOBLevels      int     `yaml:"lob_levels"`
	LOBTicksPerBar int     `yaml:"lob_ticks_per_bar"`
	LOBBaseDepth   float64 `yaml:"lob_base_depth"`
	LOBDepthDecay  float64 `yaml:"lob_depth_decay"`
	MoFrac         float64 `yaml:"mo_frac"`

	// Maker/taker economics
	MakerRebateBps float64 `yaml:"maker_rebate_bps"`
	TakerFeeBps    float64 `yaml:"taker_fee_bps"`

	// Quoting
	QuoteLevels      int     `yaml:"quote_levels"`
	LevelSizeDecay   float64 `yaml:"level_size_decay"`
	CarryOrders      bool    `yaml:"carry_orders"`
	CancelPenaltyBps float64 `yaml:"cancel_penalty_bps"`

	// Taker rebalance
	TakerRebalance          bool    `yaml:"taker_rebalance"`
	TakerRebalanceThreshold float64 `yaml:"taker_rebalance_threshold"`
	TakerRebalancePct       float64 `yaml:"taker_rebalance_pct"`
}

// DefaultSim returns the default simulation parameters.
func DefaultSim() Sim {
	return Sim{
		KVol:        0.05,
		VolLookback: 30,
		KInv:        0.002,
		KMom:        0.05,
		MomLookback: 5,

		VolBrakeMult: 3.0,
		InvCap:       50.0,
		DDStop:       0.8,
		WarmupBars:   60,

		TickSize:    0.01,
		BaseSize:    5.0,
		FeeBps:      5.0,
		LatencySec:  1,
		SlippageBps: 1.0,
		AdverseBias: 0.5,
		VolCapFrac:  0.1,
		RefPrice:    "close",
		Seed:        42,

		MarkoutHorizons: []int{1, 5, 10},

		UseLOB:         true,
		LOBLevels:      10,
		LOBTicksPerBar: 100,
		LOBBaseDepth:   8.0,
		LOBDepthDecay:  0.75,
		MoFrac:         1.0,

		MakerRebateBps: -2.0,
		TakerFeeBps:    7.0,

		QuoteLevels:      3,
		LevelSizeDecay:   0.6,
		CarryOrders:      true,
		CancelPenaltyBps: 0.1,

		TakerRebalance:          true,
		TakerRebalanceThreshold: 0.3,
		TakerRebalancePct:       0.5,
	}
}

// HighActivityPreset tightens quotes and deepens the synthetic book for
// denser fill streams.
func HighActivityPreset(s Sim) Sim {
	s.KVol = 0.1
	s.BaseSize = 2.0
	s.InvCap = 50.0
	s.LatencySec = 5
	s.VolCapFrac = 0.2
	s.MoFrac = 0.8
	s.LOBBaseDepth = 12.0
	return s
}

// Config represents the application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Sim Sim `yaml:"sim"`

	Kafka struct {
		Enabled    bool   `yaml:"enabled"`
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Database string `yaml:"database"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"clickhouse"`

	Redis struct {
		Enabled bool          `yaml:"enabled"`
		Addr    string        `yaml:"addr"`
		DB      int           `yaml:"db"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Otel struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"otel"`
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variable overrides (in that order of precedence, lowest first).
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "pretty"
	cfg.Sim = DefaultSim()
	cfg.Kafka.BrokerAddr = "localhost:9092"
	cfg.Kafka.Topic = "mmsim-trades"
	cfg.ClickHouse.Addr = "localhost:9000"
	cfg.ClickHouse.Database = "mmsim"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.TTL = 24 * time.Hour
	cfg.Otel.Endpoint = "localhost:4317"

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment overrides for deploy-specific endpoints.
	v := viper.New()
	v.SetEnvPrefix("MMSIM")
	v.AutomaticEnv()
	if addr := v.GetString("KAFKA_BROKER_ADDR"); addr != "" {
		cfg.Kafka.BrokerAddr = addr
	}
	if topic := v.GetString("KAFKA_TOPIC"); topic != "" {
		cfg.Kafka.Topic = topic
	}
	if addr := v.GetString("CLICKHOUSE_ADDR"); addr != "" {
		cfg.ClickHouse.Addr = addr
	}
	if addr := v.GetString("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if ep := v.GetString("OTEL_ENDPOINT"); ep != "" {
		cfg.Otel.Endpoint = ep
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	s := cfg.Sim
	if s.TickSize <= 0 {
		return fmt.Errorf("tick_size must be positive")
	}
	if s.BaseSize <= 0 {
		return fmt.Errorf("base_size must be positive")
	}
	if s.InvCap <= 0 {
		return fmt.Errorf("inv_cap must be positive")
	}
	if s.LOBLevels <= 0 {
		return fmt.Errorf("lob_levels must be positive")
	}
	if s.LOBTicksPerBar <= 0 {
		return fmt.Errorf("lob_ticks_per_bar must be positive")
	}
	if s.QuoteLevels <= 0 {
		return fmt.Errorf("quote_levels must be positive")
	}
	if s.QuoteLevels > s.LOBLevels {
		return fmt.Errorf("quote_levels must not exceed lob_levels")
	}
	if s.RefPrice == "" {
		return fmt.Errorf("ref_price must not be empty")
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logger struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"console"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"100"`
		MaxBackups int    `yaml:"max_backups" default:"5"`
		MaxAgeDays int    `yaml:"max_age_days" default:"14"`
		Collector  struct {
			Enabled        bool          `yaml:"enabled"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logger"`
	Trading struct {
		Symbols             []string      `yaml:"symbols"`
		Interval            time.Duration `yaml:"interval" default:"60s"`
		TickTimeout         time.Duration `yaml:"tick_timeout" default:"15s"`
		Strategy            string        `yaml:"strategy" default:"AI_Strategy"`
		InitialCash         float64       `yaml:"initial_cash" default:"100000"`
		ConfidenceThreshold float64       `yaml:"confidence_threshold" default:"0.7"`
		AutoStart           bool          `yaml:"auto_start"`
	} `yaml:"trading"`
	Risk struct {
		MaxPositionSize  float64 `yaml:"max_position_size" default:"0.1"`
		MaxDailyLoss     float64 `yaml:"max_daily_loss" default:"0.05"`
		MaxPortfolioRisk float64 `yaml:"max_portfolio_risk" default:"0.02"`
		StopLossPct      float64 `yaml:"stop_loss_pct" default:"0.05"`
		TakeProfitPct    float64 `yaml:"take_profit_pct" default:"0.1"`
		MarketOpenHour   int     `yaml:"market_open_hour" default:"9"`
		MarketCloseHour  int     `yaml:"market_close_hour" default:"16"`
		DailyResetCron   string  `yaml:"daily_reset_cron" default:"0 0 * * *"`
		// RenormalizeWeights divides the weighted risk sum by the weights actually used.
		RenormalizeWeights bool `yaml:"renormalize_weights"`
	} `yaml:"risk"`
	Model struct {
		Store    string `yaml:"store" default:"file"`
		Dir      string `yaml:"dir" default:"ml_models"`
		Key      string `yaml:"key" default:"model:state"`
		Trees    int    `yaml:"trees" default:"100"`
		MaxDepth int    `yaml:"max_depth" default:"10"`
		Seed     int64  `yaml:"seed" default:"42"`
	} `yaml:"model"`
	Market struct {
		Timeframe   string        `yaml:"timeframe" default:"1m"`
		Lookback    int           `yaml:"lookback" default:"200"`
		SnapshotTTL time.Duration `yaml:"snapshot_ttl" default:"5m"`
	} `yaml:"market"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		TradesTopic   string   `yaml:"trades_topic" default:"autotrade.trades"`
		OutcomesTopic string   `yaml:"outcomes_topic" default:"autotrade.outcomes"`
		LogsTopic     string   `yaml:"logs_topic" default:"autotrade.logs"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"gzip"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"autotrade"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"autotrade"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"autotrade"`
	} `yaml:"redis"`
	Finnhub struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		MaxRPS         int           `yaml:"max_rps" default:"20"`
		BufferSize     int           `yaml:"buffer_size" default:"2000"`
		BatchSize      int           `yaml:"batch_size" default:"500"`
		BatchTimeout   time.Duration `yaml:"batch_timeout" default:"1s"`
		PriceMaxAge    time.Duration `yaml:"price_max_age" default:"2m"`
	} `yaml:"finnhub"`
	Analytics struct {
		FactorsServiceURL string        `yaml:"factors_service_url"`
		Timeout           time.Duration `yaml:"timeout" default:"3s"`
		Breaker           struct {
			MaxRequests  uint32        `yaml:"max_requests" default:"1"`
			Interval     time.Duration `yaml:"interval" default:"60s"`
			Timeout      time.Duration `yaml:"timeout" default:"30s"`
			FailureRatio float64       `yaml:"failure_ratio" default:"0.5"`
			MinRequests  uint32        `yaml:"min_requests" default:"5"`
		} `yaml:"breaker"`
	} `yaml:"analytics"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment lookup function.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := getenv("SYMBOLS"); v != "" {
		c.Trading.Symbols = strings.Split(v, ",")
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := getenv("FACTORS_SERVICE_URL"); v != "" {
		c.Analytics.FactorsServiceURL = v
	}
	if v := getenv("TRADING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Trading.Interval = d
		}
	}
	if v := getenv("CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Trading.ConfidenceThreshold = f
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols cannot be empty")
	}
	if c.Trading.Interval <= 0 {
		return fmt.Errorf("trading.interval must be positive")
	}
	if c.Trading.InitialCash < 0 {
		return fmt.Errorf("trading.initial_cash must not be negative")
	}
	if c.Trading.ConfidenceThreshold < 0 || c.Trading.ConfidenceThreshold > 1 {
		return fmt.Errorf("trading.confidence_threshold must be within [0,1], got %v", c.Trading.ConfidenceThreshold)
	}
	if c.Risk.MaxDailyLoss <= 0 || c.Risk.MaxDailyLoss >= 1 {
		return fmt.Errorf("risk.max_daily_loss must be within (0,1), got %v", c.Risk.MaxDailyLoss)
	}
	if c.Model.Store != "file" && c.Model.Store != "redis" {
		return fmt.Errorf("model.store must be 'file' or 'redis', got '%s'", c.Model.Store)
	}
	if c.Model.Store == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("model.store 'redis' requires redis.enabled")
	}
	if c.Finnhub.Enabled && c.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub.api_key is required when finnhub is enabled")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	return nil
}

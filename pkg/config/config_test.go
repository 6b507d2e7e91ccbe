package config

import (
	"strings"
	"testing"
	"time"
)

const minimal = `
environment: test
trading:
  symbols: [AAPL, MSFT]
clickhouse:
  host: localhost
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Trading.Interval != 60*time.Second || c.Trading.TickTimeout != 15*time.Second {
		t.Fatalf("trading durations = %v / %v", c.Trading.Interval, c.Trading.TickTimeout)
	}
	if c.Trading.ConfidenceThreshold != 0.7 || c.Trading.InitialCash != 100000 {
		t.Fatalf("trading defaults = %+v", c.Trading)
	}
	if c.Model.Store != "file" || c.Model.Trees != 100 || c.Model.MaxDepth != 10 || c.Model.Seed != 42 {
		t.Fatalf("model defaults = %+v", c.Model)
	}
	if c.Risk.DailyResetCron != "0 0 * * *" || c.Risk.MaxDailyLoss != 0.05 {
		t.Fatalf("risk defaults = %+v", c.Risk)
	}
	if c.Finnhub.BatchSize != 500 || c.Finnhub.PriceMaxAge != 2*time.Minute {
		t.Fatalf("finnhub defaults = %+v", c.Finnhub)
	}
	if c.Kafka.OutcomesTopic != "autotrade.outcomes" || c.Market.Timeframe != "1m" {
		t.Fatalf("kafka/market defaults = %q %q", c.Kafka.OutcomesTopic, c.Market.Timeframe)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no symbols", "environment: test\nclickhouse:\n  host: h\n", "symbols"},
		{"no environment", "trading:\n  symbols: [A]\nclickhouse:\n  host: h\n", "environment"},
		{"threshold", "environment: test\ntrading:\n  symbols: [A]\n  confidence_threshold: 1.5\nclickhouse:\n  host: h\n", "confidence_threshold"},
		{"redis model store", minimal + "model:\n  store: redis\n", "redis.enabled"},
		{"finnhub key", minimal + "finnhub:\n  enabled: true\n", "api_key"},
		{"clickhouse host", "environment: test\ntrading:\n  symbols: [A]\n", "clickhouse.host"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	env := map[string]string{
		"SYMBOLS":              "TSLA,NVDA,META",
		"TRADING_INTERVAL":     "30s",
		"CONFIDENCE_THRESHOLD": "not-a-number",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"FINNHUB_API_KEY":      "secret",
	}
	c.ApplyEnv(func(k string) string { return env[k] })

	if strings.Join(c.Trading.Symbols, ",") != "TSLA,NVDA,META" {
		t.Fatalf("symbols = %v", c.Trading.Symbols)
	}
	if c.Trading.Interval != 30*time.Second {
		t.Fatalf("interval = %v", c.Trading.Interval)
	}
	if c.Trading.ConfidenceThreshold != 0.7 {
		t.Fatalf("unparsable threshold must be ignored, got %v", c.Trading.ConfidenceThreshold)
	}
	if len(c.Kafka.Brokers) != 2 || c.Finnhub.APIKey != "secret" {
		t.Fatalf("kafka/finnhub = %v %q", c.Kafka.Brokers, c.Finnhub.APIKey)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	c, err := Load("../../config/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Trading.Symbols) != 7 || c.Server.Port != 8080 {
		t.Fatalf("config = %+v", c.Trading)
	}
}

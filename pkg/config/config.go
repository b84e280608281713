package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout" validate:"required"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"1" validate:"gt=0"`
			Burst int     `yaml:"burst" default:"3" validate:"gte=1"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Forecast struct {
		Horizon     int     `yaml:"horizon" default:"120" validate:"gte=1,lte=1000"`
		K           int     `yaml:"k" default:"5" validate:"gte=1"`
		Iterations  int     `yaml:"iterations" default:"5" validate:"gte=1"`
		Folds       int     `yaml:"folds" default:"10" validate:"gte=2"`
		Concurrency int     `yaml:"concurrency" validate:"gte=0"`
		Threshold   float64 `yaml:"threshold" default:"0.02" validate:"gt=0,lt=1"`
		Offsets     int     `yaml:"offsets" default:"7" validate:"gte=1,lte=60"`
		FillScope   string  `yaml:"fill_scope" default:"full" validate:"oneof=full train"`
		Seed        int64   `yaml:"seed" default:"42"`
		// Hold-out shares of the evaluation split.
		RegressionTestSize     float64 `yaml:"regression_test_size" default:"0.3" validate:"gt=0,lt=1"`
		ClassificationTestSize float64 `yaml:"classification_test_size" default:"0.25" validate:"gt=0,lt=1"`
		RFE                    struct {
			Estimators int `yaml:"estimators" default:"3000" validate:"gte=1"`
			MaxDepth   int `yaml:"max_depth" default:"4" validate:"gte=1"`
		} `yaml:"rfe"`
		AdaBoostEstimators int `yaml:"adaboost_estimators" default:"3000" validate:"gte=1"`
		// Tickers is the classification universe; empty means every stored ticker.
		Tickers []string `yaml:"tickers"`
	} `yaml:"forecast"`
	Store struct {
		Type string `yaml:"type" default:"clickhouse" validate:"oneof=clickhouse memory"`
		// Fixture is a JSON file of price series loaded by the memory store.
		Fixture string `yaml:"fixture"`
	} `yaml:"store"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		ResultsTopic  string   `yaml:"results_topic" default:"fincast.forecasts"`
		RequestsTopic string   `yaml:"requests_topic" default:"fincast.forecast-requests"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
		Compression   string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer      struct {
			MaxAttempts    int           `yaml:"max_attempts" default:"3"`
			WriteTimeout   time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout    time.Duration `yaml:"read_timeout" default:"10s"`
			PublishRetries uint64        `yaml:"publish_retries" default:"5"`
			BackoffMax     time.Duration `yaml:"backoff_max" default:"30s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"fincast"`
			Workers    int           `yaml:"workers" default:"1" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"16" validate:"gte=1"`
			RetryMax   int           `yaml:"retry_max" default:"3" validate:"gte=0"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"1s"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"30s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"fincast.forecast-requests.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"fincast"`
		Table            string        `yaml:"table" default:"daily_bars"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Cache struct {
		Type string        `yaml:"type" default:"memory" validate:"oneof=none memory redis layered"`
		TTL  time.Duration `yaml:"ttl" default:"6h"`
		// LocalTTL caps how long the layered cache keeps entries in process.
		LocalTTL time.Duration `yaml:"local_ttl" default:"5m"`
		Redis    struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Unset fields take their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("FINCAST_TICKERS"); v != "" {
		c.Forecast.Tickers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		if c.Cache.Type != "layered" {
			c.Cache.Type = "redis"
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Forecast.K > 12 {
		return fmt.Errorf("forecast.k must not exceed the 12 engineered features, got %d", c.Forecast.K)
	}
	if c.Store.Type == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for the clickhouse store")
	}
	if c.Store.Type == "memory" && c.Store.Fixture == "" {
		return fmt.Errorf("store.fixture is required for the memory store")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Consumer.BackoffMin > c.Kafka.Consumer.BackoffMax {
		return fmt.Errorf("kafka.consumer.backoff_min must not exceed backoff_max")
	}
	return nil
}

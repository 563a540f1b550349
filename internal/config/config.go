package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Broker         BrokerConfig
	ResultsDB      ResultsDBConfig
	Logging        LoggingConfig
	Updater        UpdaterConfig
	CircuitBreaker CircuitBreakerConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers  []string    `mapstructure:"brokers"`
	GroupID  string      `mapstructure:"group_id"`
	Topics   []string    `mapstructure:"topics"`
	DLQTopic string      `mapstructure:"dlq_topic"`
	Retry    RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// ResultsDBConfig describes the remote results store API. User and
// Password enable HTTP Basic auth and require an HTTPS APIURL. An empty
// CAPath means the system trust store is used.
type ResultsDBConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	CAPath         string        `mapstructure:"ca_path"`
	TimeoutSeconds time.Duration `mapstructure:"timeout_seconds"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type UpdaterConfig struct {
	// FilterExpression is an optional CEL expression evaluated against
	// each decoded bus message before classification. Messages for which
	// it yields false are dropped. Empty disables the filter.
	FilterExpression string `mapstructure:"filter_expression"`

	// PrivateTestcasePublisherMap restricts who may publish results for
	// test cases matching a glob pattern.
	PrivateTestcasePublisherMap []PrivateTestcaseRule `mapstructure:"private_testcase_publisher_map"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type PrivateTestcaseRule struct {
	TestcaseGlob string `mapstructure:"testcase_glob"`
	PublisherID  string `mapstructure:"publisher_id"`
}

// RateLimitConfig throttles outbound submissions to the results store.
// RPS of zero disables throttling.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	IntervalSeconds  time.Duration `mapstructure:"interval_seconds"`
	TimeoutSeconds   time.Duration `mapstructure:"timeout_seconds"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}

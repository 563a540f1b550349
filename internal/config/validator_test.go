package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Broker: BrokerConfig{
			Type: "kafka",
			Kafka: KafkaConfig{
				Brokers: []string{"kafka:9092"},
				GroupID: "resultsink",
				Topics:  []string{"umb.eng.ci"},
			},
		},
		ResultsDB: ResultsDBConfig{
			APIURL: "https://resultsdb.local/api/v2.0",
		},
	}
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantError string
	}{
		{
			name:   "valid config",
			mutate: func(cfg *Config) {},
		},
		{
			name:      "invalid port",
			mutate:    func(cfg *Config) { cfg.Server.Port = 0 },
			wantError: "server.port",
		},
		{
			name:      "unsupported broker type",
			mutate:    func(cfg *Config) { cfg.Broker.Type = "rabbitmq" },
			wantError: "broker.type",
		},
		{
			name:      "no brokers",
			mutate:    func(cfg *Config) { cfg.Broker.Kafka.Brokers = nil },
			wantError: "broker.kafka.brokers",
		},
		{
			name:      "no topics",
			mutate:    func(cfg *Config) { cfg.Broker.Kafka.Topics = nil },
			wantError: "broker.kafka.topics",
		},
		{
			name:      "missing results store URL",
			mutate:    func(cfg *Config) { cfg.ResultsDB.APIURL = "" },
			wantError: "resultsdb.api_url",
		},
		{
			name:      "user without password",
			mutate:    func(cfg *Config) { cfg.ResultsDB.User = "updater" },
			wantError: "resultsdb.user",
		},
		{
			name: "basic auth requires https",
			mutate: func(cfg *Config) {
				cfg.ResultsDB.APIURL = "http://resultsdb.local/api/v2.0"
				cfg.ResultsDB.User = "updater"
				cfg.ResultsDB.Password = "secret"
			},
			wantError: "resultsdb.api_url",
		},
		{
			name: "invalid private testcase glob",
			mutate: func(cfg *Config) {
				cfg.Updater.PrivateTestcasePublisherMap = []PrivateTestcaseRule{
					{TestcaseGlob: "baseos-ci.[", PublisherID: "osci-pipeline"},
				}
			},
			wantError: "private_testcase_publisher_map",
		},
		{
			name: "glob without publisher",
			mutate: func(cfg *Config) {
				cfg.Updater.PrivateTestcasePublisherMap = []PrivateTestcaseRule{
					{TestcaseGlob: "baseos-ci.*"},
				}
			},
			wantError: "private_testcase_publisher_map",
		},
		{
			name:      "negative rate limit",
			mutate:    func(cfg *Config) { cfg.Updater.RateLimit.RPS = -1 },
			wantError: "rate_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantError)
			}
		})
	}
}

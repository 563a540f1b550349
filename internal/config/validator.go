package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateResultsDB(cfg.ResultsDB); err != nil {
		errors = append(errors, err)
	}

	if err := validateUpdater(cfg.Updater); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Type != "kafka" {
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unsupported broker type %q", cfg.Type),
		}
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one broker address is required",
		}
	}

	if len(cfg.Kafka.Topics) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.topics",
			Message: "at least one subscribed topic is required",
		}
	}

	return nil
}

func validateResultsDB(cfg ResultsDBConfig) error {
	if cfg.APIURL == "" {
		return &ValidationError{
			Field:   "resultsdb.api_url",
			Message: "results store API URL is required",
		}
	}

	hasUser := cfg.User != ""
	hasPassword := cfg.Password != ""

	if hasUser != hasPassword {
		return &ValidationError{
			Field:   "resultsdb.user",
			Message: "user and password must be configured together for Basic authentication",
		}
	}

	// https://tools.ietf.org/html/rfc7617#section-4
	if hasUser && !strings.HasPrefix(cfg.APIURL, "https://") {
		return &ValidationError{
			Field:   "resultsdb.api_url",
			Message: "Basic authentication must not be used without HTTPS",
		}
	}

	return nil
}

func validateUpdater(cfg UpdaterConfig) error {
	for _, rule := range cfg.PrivateTestcasePublisherMap {
		if _, err := glob.Compile(rule.TestcaseGlob); err != nil {
			return &ValidationError{
				Field:   "updater.private_testcase_publisher_map",
				Message: fmt.Sprintf("invalid test case glob %q: %v", rule.TestcaseGlob, err),
			}
		}
		if rule.PublisherID == "" {
			return &ValidationError{
				Field:   "updater.private_testcase_publisher_map",
				Message: fmt.Sprintf("missing publisher_id for glob %q", rule.TestcaseGlob),
			}
		}
	}

	if cfg.RateLimit.RPS < 0 {
		return &ValidationError{
			Field:   "updater.rate_limit.rps",
			Message: "rate limit rps must not be negative",
		}
	}

	return nil
}

package bootstrap

import (
	"fmt"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"resultsink/internal/config"
	"resultsink/internal/logger"
	"resultsink/internal/resultsdb"
	"resultsink/pkg/circuitbreaker"
)

// NewResultsDBClient builds the results store client with the optional
// circuit breaker and submission throttle from configuration.
func NewResultsDBClient(cfg *config.Config, log logger.Logger) (*resultsdb.Client, error) {
	client, err := resultsdb.NewClient(cfg.ResultsDB, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create results store client: %w", err)
	}

	if cfg.CircuitBreaker.Enabled {
		breakerCfg := circuitbreaker.DefaultConfig("resultsdb")
		if cfg.CircuitBreaker.MaxRequests > 0 {
			breakerCfg.MaxRequests = cfg.CircuitBreaker.MaxRequests
		}
		if cfg.CircuitBreaker.IntervalSeconds > 0 {
			breakerCfg.Interval = cfg.CircuitBreaker.IntervalSeconds
		}
		if cfg.CircuitBreaker.TimeoutSeconds > 0 {
			breakerCfg.Timeout = cfg.CircuitBreaker.TimeoutSeconds
		}
		if threshold := cfg.CircuitBreaker.FailureThreshold; threshold > 0 {
			breakerCfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= threshold
			}
		}
		client = client.WithBreaker(circuitbreaker.NewWrapper(breakerCfg))
	}

	if cfg.Updater.RateLimit.RPS > 0 {
		burst := cfg.Updater.RateLimit.Burst
		if burst < 1 {
			burst = 1
		}
		client = client.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Updater.RateLimit.RPS), burst))
	}

	return client, nil
}

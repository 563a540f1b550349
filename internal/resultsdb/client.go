package resultsdb

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"resultsink/internal/config"
	"resultsink/internal/constants"
	"resultsink/internal/logger"
	"resultsink/pkg/circuitbreaker"
	"resultsink/pkg/metrics"
	"resultsink/pkg/retry"
)

// Client talks to the ResultsDB HTTP API. It is safe for sequential use
// per consumer instance; each instance owns its own client.
type Client struct {
	baseURL  string
	hc       *http.Client
	user     string
	password string
	log      logger.Logger
	breaker  *circuitbreaker.Wrapper
	limiter  *rate.Limiter
}

func NewClient(cfg config.ResultsDBConfig, log logger.Logger) (*Client, error) {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = constants.DefaultResultsDBTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.CAPath != "" {
		pool, err := loadCertPool(cfg.CAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load CA bundle %s: %w", cfg.CAPath, err)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		hc: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		user:     cfg.User,
		password: cfg.Password,
		log:      log,
	}, nil
}

func loadCertPool(caPath string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caPath)
	}
	return pool, nil
}

// WithBreaker guards store calls with a circuit breaker.
func (c *Client) WithBreaker(breaker *circuitbreaker.Wrapper) *Client {
	c.breaker = breaker
	return c
}

// WithLimiter throttles submissions to the store.
func (c *Client) WithLimiter(limiter *rate.Limiter) *Client {
	c.limiter = limiter
	return c
}

func submitPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     constants.SubmitMaxAttempts,
		InitialInterval: constants.SubmitInitialInterval,
		MaxInterval:     constants.SubmitMaxInterval,
		Multiplier:      constants.SubmitMultiplier,
	}
}

// CreateResult POSTs one canonical result. A 400 response surfaces as
// CreateResultError; 500/502/504 and connection errors are retried with
// exponential backoff and wrapped in TransportError once the budget is
// exhausted.
func (c *Client) CreateResult(ctx context.Context, result Result) error {
	if result.Groups == nil {
		result.Groups = []Group{}
	}
	if result.Data == nil {
		result.Data = map[string]interface{}{}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	c.log.DebugwCtx(ctx, "Requesting new result", "payload", string(payload))

	err = retry.RetryWithCallback(ctx, submitPolicy(), func() error {
		return c.postResult(ctx, payload)
	}, func(attempt int, err error, nextDelay time.Duration) {
		c.log.WarnwCtx(ctx, "Retrying result submission",
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})

	if err != nil {
		if IsCreateResultError(err) {
			return err
		}
		return &TransportError{Err: err}
	}

	return nil
}

func (c *Client) postResult(ctx context.Context, payload []byte) error {
	resp, body, err := c.do(ctx, http.MethodPost, c.baseURL+"/results", payload)
	if err != nil {
		return err
	}

	c.log.DebugwCtx(ctx, "New result requested", "status", resp.StatusCode)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil

	case resp.StatusCode == http.StatusBadRequest:
		var rejection struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &rejection)
		return &CreateResultError{Message: rejection.Message, Payload: string(payload)}

	case retryableStatus(resp.StatusCode):
		return retry.NewRetryableError(
			fmt.Errorf("results store returned HTTP %d", resp.StatusCode))

	default:
		return retry.NewFatalError(
			fmt.Errorf("results store returned unexpected HTTP %d", resp.StatusCode))
	}
}

// GetFirstGroup looks up an existing group by description. The bool
// reports whether one was found.
func (c *Client) GetFirstGroup(ctx context.Context, description string) (Group, bool, error) {
	target := c.baseURL + "/groups?description=" + url.QueryEscape(description)

	var found Group
	var ok bool

	err := retry.Retry(ctx, submitPolicy(), func() error {
		resp, body, err := c.do(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}

		if retryableStatus(resp.StatusCode) {
			return retry.NewRetryableError(
				fmt.Errorf("results store returned HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return retry.NewFatalError(
				fmt.Errorf("results store returned unexpected HTTP %d", resp.StatusCode))
		}

		var groups struct {
			Data []Group `json:"data"`
		}
		if err := json.Unmarshal(body, &groups); err != nil {
			return retry.NewFatalError(fmt.Errorf("failed to decode groups response: %w", err))
		}

		if len(groups.Data) > 0 {
			found = groups.Data[0]
			ok = true
		}
		return nil
	})

	if err != nil {
		return Group{}, false, &TransportError{Err: err}
	}

	return found, ok, nil
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) (*http.Response, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, retry.NewFatalError(err)
		}
	}

	call := func() (interface{}, error) {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
		if err != nil {
			return nil, retry.NewFatalError(err)
		}

		req.Header.Set("User-Agent", constants.UserAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.user != "" {
			req.SetBasicAuth(c.user, c.password)
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		durationMs := float64(time.Since(start).Milliseconds())

		if err != nil {
			metrics.ObserveSubmission(method, 0, durationMs)
			return nil, err
		}

		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		metrics.ObserveSubmission(method, resp.StatusCode, durationMs)
		return &callResult{resp: resp, body: body}, nil
	}

	var raw interface{}
	var err error
	if c.breaker != nil {
		raw, err = c.breaker.ExecuteWithContext(ctx, call)
	} else {
		raw, err = call()
	}

	if err != nil {
		return nil, nil, err
	}

	result := raw.(*callResult)
	return result.resp, result.body, nil
}

type callResult struct {
	resp *http.Response
	body []byte
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Ping checks that the store API answers at all; used by readiness
// probes.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/groups?limit=1", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", constants.UserAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("results store unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Package upstream performs bounded JSON requests against third-party APIs.
// Every call gets its own timeout; retries use exponential backoff and are
// opt-in per request.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gaslens/gaslens/internal/observability/metrics"
)

// Config bounds outbound calls
type Config struct {
	Timeout    time.Duration
	MaxRetries int
}

// StatusError is returned when an upstream answers with a non-2xx status
type StatusError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Source, e.StatusCode, e.Body)
}

// Request describes one GET call
type Request struct {
	// Source labels metrics and errors, e.g. "etherscan"
	Source  string
	URL     string
	Headers map[string]string
	// Retry enables backoff on transport errors and retryable statuses
	Retry bool
}

// Fetcher issues GET requests and decodes JSON bodies
type Fetcher struct {
	client          *http.Client
	timeout         time.Duration
	maxRetries      int
	initialInterval time.Duration
}

// New creates a Fetcher. A zero timeout defaults to 10 seconds.
func New(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		client:          &http.Client{},
		timeout:         timeout,
		maxRetries:      cfg.MaxRetries,
		initialInterval: 200 * time.Millisecond,
	}
}

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// GetJSON fetches req.URL and decodes the response body into target.
func (f *Fetcher) GetJSON(ctx context.Context, req Request, target any) error {
	start := time.Now()

	operation := func() error {
		return f.once(ctx, req, target)
	}

	var err error
	if req.Retry && f.maxRetries > 0 {
		expBackoff := backoff.NewExponentialBackOff()
		expBackoff.InitialInterval = f.initialInterval
		expBackoff.MaxInterval = 2 * time.Second
		expBackoff.MaxElapsedTime = 0
		err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(f.maxRetries)), ctx))
	} else {
		err = operation()
	}

	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.UpstreamFetch(req.Source, result, time.Since(start))

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func (f *Fetcher) once(ctx context.Context, req Request, target any) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("building %s request: %w", req.Source, err))
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.Source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{Source: req.Source, StatusCode: resp.StatusCode, Body: string(body)}
		if retryableStatus[resp.StatusCode] {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return backoff.Permanent(fmt.Errorf("decoding %s response: %w", req.Source, err))
	}
	return nil
}

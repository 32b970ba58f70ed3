package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesync/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 4
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultRateLimit  = 10.0
)

// maxRetryAfterSeconds is the largest delta-seconds value a [time.Duration] can hold.
const maxRetryAfterSeconds = math.MaxInt64 / int64(time.Second)

// BasicAuth carries client credentials for the token endpoint.
type BasicAuth struct {
	Username string
	Password string
}

// Request describes one logical call. At most one of Body (JSON) or Form is sent.
type Request struct {
	Method    string
	URL       string
	Body      any
	Form      url.Values
	Bearer    string
	BasicAuth *BasicAuth
}

// APIError is the terminal failure of a [Request].
//
// Status is zero when no response was received (timeout or connection failure).
type APIError struct {
	Status  int
	Message string
	Err     error // Sentinel from the shared package
	Cause   error // Underlying transport error, if any
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("spotify API error: %s", e.Message)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() []error {
	errs := []error{}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Status == http.StatusUnauthorized {
		errs = append(errs, shared.ErrTokenExpired)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewAPIError builds an [APIError] for status, mapping it to a sentinel.
func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message, Err: statusSentinel(status)}
}

func statusSentinel(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return shared.ErrRateLimited
	case status >= 500:
		return shared.ErrServiceUnavailable
	case status == http.StatusNotFound:
		return shared.ErrNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// IsStatus reports whether err is an [APIError] carrying status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// TransportOpts configures a [Transport]. Zero values select the defaults.
type TransportOpts struct {
	Client     *http.Client
	Timeout    time.Duration
	MaxRetries int // Retries after the first attempt; negative disables retrying
	BaseDelay  time.Duration
	RateLimit  float64 // Requests per second; negative disables limiting
	Logger     *log.Logger
	Sleep      func(ctx context.Context, d time.Duration) error
	Now        func() time.Time
}

// Transport performs HTTP calls with a per-attempt timeout, bounded retries and backoff.
type Transport struct {
	client     *http.Client
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	limiter    *rate.Limiter
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// NewTransport creates a [Transport] from opts.
func NewTransport(opts TransportOpts) *Transport {
	t := &Transport{
		client:     opts.Client,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		logger:     opts.Logger,
		sleep:      opts.Sleep,
		now:        opts.Now,
	}

	if t.client == nil {
		t.client = http.DefaultClient
	}
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}
	switch {
	case t.maxRetries < 0:
		t.maxRetries = 0
	case t.maxRetries == 0:
		t.maxRetries = DefaultMaxRetries
	}
	if t.baseDelay <= 0 {
		t.baseDelay = DefaultBaseDelay
	}
	if t.logger == nil {
		t.logger = shared.NewLogger(io.Discard)
	}
	if t.sleep == nil {
		t.sleep = sleepContext
	}
	if t.now == nil {
		t.now = time.Now
	}

	switch limit := opts.RateLimit; {
	case limit < 0:
		t.limiter = rate.NewLimiter(rate.Inf, 1)
	case limit == 0:
		t.limiter = rate.NewLimiter(rate.Limit(DefaultRateLimit), int(DefaultRateLimit))
	default:
		t.limiter = rate.NewLimiter(rate.Limit(limit), max(1, int(limit)))
	}
	return t
}

// NewTransportFromConfig creates a [Transport] from the [shared.HTTPConfig] section.
func NewTransportFromConfig(cfg shared.HTTPConfig, client *http.Client, logger *log.Logger) *Transport {
	return NewTransport(TransportOpts{
		Client:     client,
		Timeout:    cfg.Timeout(),
		MaxRetries: retriesOpt(cfg.MaxRetries),
		BaseDelay:  cfg.BaseDelay(),
		RateLimit:  cfg.RateLimit,
		Logger:     logger,
	})
}

// retriesOpt maps a configured retry count onto [TransportOpts.MaxRetries], where zero means the default.
func retriesOpt(configured int) int {
	if configured == 0 {
		return -1
	}
	return configured
}

// attemptResult is the outcome of a single HTTP exchange.
type attemptResult struct {
	status int
	header http.Header
	body   []byte
	err    error // Transport-level failure, no response
	timed  bool  // Per-attempt deadline expired
}

// Do executes r, decoding a non-empty successful body into result.
//
// Status 429, status >= 500, per-attempt timeouts and connection failures are retried.
// Cancellation of ctx is returned as is and never retried.
func (t *Transport) Do(ctx context.Context, r Request, result any) error {
	payload, contentType, err := r.encode()
	if err != nil {
		return fmt.Errorf("%w: failed to encode request: %v", shared.ErrInvalidInput, err)
	}

	var last attemptResult
	for attempt := 1; attempt <= t.maxRetries+1; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}

		last = t.attempt(ctx, r, payload, contentType)
		if err := ctx.Err(); err != nil {
			return err
		}

		if last.err == nil && last.status >= 200 && last.status < 300 {
			return decodeBody(last.body, result)
		}

		if !last.retryable() {
			break
		}

		if attempt > t.maxRetries {
			break
		}

		delay := t.delay(attempt, last.header)
		t.logger.Warn("retrying request",
			"method", r.Method, "url", r.URL, "attempt", attempt, "status", last.status, "delay", delay)

		if err := t.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return last.apiError()
}

func (t *Transport) attempt(ctx context.Context, r Request, payload []byte, contentType string) attemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, r.Method, r.URL, body)
	if err != nil {
		return attemptResult{err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.Bearer)
	}
	if r.BasicAuth != nil {
		req.SetBasicAuth(r.BasicAuth.Username, r.BasicAuth.Password)
	}

	t.logger.Debug("sending request", "method", r.Method, "url", r.URL)

	resp, err := t.client.Do(req)
	if err != nil {
		return attemptResult{err: err, timed: errors.Is(attemptCtx.Err(), context.DeadlineExceeded)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptResult{err: err, timed: errors.Is(attemptCtx.Err(), context.DeadlineExceeded)}
	}

	return attemptResult{status: resp.StatusCode, header: resp.Header, body: data}
}

// delay returns the wait before the attempt following failed attempt n (1-based).
func (t *Transport) delay(n int, header http.Header) time.Duration {
	if d, ok := parseRetryAfter(header.Get("Retry-After"), t.now()); ok {
		return d
	}
	return t.baseDelay * time.Duration(1<<(n-1))
}

func (a attemptResult) retryable() bool {
	if a.err != nil {
		return true
	}
	return a.status == http.StatusTooManyRequests || a.status >= 500
}

func (a attemptResult) apiError() *APIError {
	switch {
	case a.timed:
		return &APIError{Message: "request timed out", Err: shared.ErrTimeout, Cause: a.err}
	case a.err != nil:
		return &APIError{Message: a.err.Error(), Err: shared.ErrAPIRequest, Cause: a.err}
	default:
		return NewAPIError(a.status, errorMessage(a.body))
	}
}

func (r Request) encode() ([]byte, string, error) {
	switch {
	case r.Form != nil:
		return []byte(r.Form.Encode()), "application/x-www-form-urlencoded", nil
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	default:
		return nil, "", nil
	}
}

func decodeBody(data []byte, result any) error {
	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// errorMessage extracts a human-readable message from an error response body.
//
// Recognizes {"error":{"status":N,"message":"..."}} and {"error":"code","error_description":"..."},
// then falls back to the raw text.
func errorMessage(data []byte) string {
	var envelope struct {
		Error       json.RawMessage `json:"error"`
		Description string          `json:"error_description"`
	}

	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}

		var code string
		if err := json.Unmarshal(envelope.Error, &code); err == nil {
			if envelope.Description != "" {
				return envelope.Description
			}
			if code != "" {
				return code
			}
		}
	}

	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return "request failed"
}

// parseRetryAfter reads a Retry-After value in delta-seconds or HTTP-date form.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(min(secs, maxRetryAfterSeconds)) * time.Second, true
	}

	if at, err := http.ParseTime(value); err == nil {
		return max(at.Sub(now), 0), true
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

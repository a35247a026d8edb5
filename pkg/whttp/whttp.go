package whttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/playscope/internal/utils"
)

const (
	USER_AGENT = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// RateLimitSentinel shows up in a 200 response body when the store gateway
	// throttled the request.
	RateLimitSentinel = "com.google.play.gateway.proto.PlayGatewayError"

	DefaultMaxAttempts    = 3
	DefaultRateLimitDelay = 5 * time.Second
	DefaultTimeout        = 30 * time.Second
	DefaultRetries        = 2
)

var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited by store gateway")
)

// NotFoundError is returned for 404 responses.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return "not found (404): " + e.URL
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// HTTPError is returned for any other non-2xx outcome.
type HTTPError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("status code %d returned by %s", e.StatusCode, e.URL)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Body    string
	Headers []WHTTPHeader
}

type WHTTPRes struct {
	StatusCode int
	BodyString string
}

// Config controls the transport. Zero values fall back to the defaults above.
type Config struct {
	Timeout time.Duration
	// Retries is the transport-level retry count; negative disables them.
	Retries        int
	MaxAttempts    int
	RateLimitDelay time.Duration
	Proxy          string
}

// Client sends store requests through a retryablehttp client and applies the
// gateway rate-limit backoff on POSTs.
type Client struct {
	http           *retryablehttp.Client
	maxAttempts    int
	rateLimitDelay time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config) (*Client, error) {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = leveledLogger{}
	switch {
	case cfg.Retries > 0:
		retryClient.RetryMax = cfg.Retries
	case cfg.Retries < 0:
		retryClient.RetryMax = 0
	default:
		retryClient.RetryMax = DefaultRetries
	}
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	retryClient.HTTPClient.Timeout = DefaultTimeout
	if cfg.Timeout > 0 {
		retryClient.HTTPClient.Timeout = cfg.Timeout
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		retryClient.HTTPClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
	}

	c := &Client{
		http:           retryClient,
		maxAttempts:    DefaultMaxAttempts,
		rateLimitDelay: DefaultRateLimitDelay,
		sleep:          sleepContext,
	}
	if cfg.MaxAttempts > 0 {
		c.maxAttempts = cfg.MaxAttempts
	}
	if cfg.RateLimitDelay > 0 {
		c.rateLimitDelay = cfg.RateLimitDelay
	}
	return c, nil
}

// SendHTTPRequest performs a single logical request. Transport-level retries
// (connection errors, 5xx, 429) happen inside retryablehttp.
func (c *Client) SendHTTPRequest(ctx context.Context, wReq *WHTTPReq) (*WHTTPRes, error) {
	var body io.Reader
	if wReq.Body != "" {
		body = strings.NewReader(wReq.Body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, wReq.Method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Cache-Control", "no-transform")
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &WHTTPRes{StatusCode: resp.StatusCode, BodyString: string(bodyBytes)}, nil
}

// Get fetches url and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, url string) (string, error) {
	res, err := c.SendHTTPRequest(ctx, &WHTTPReq{Method: http.MethodGet, URL: url})
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	if err := checkStatus(url, res.StatusCode); err != nil {
		return "", err
	}
	return res.BodyString, nil
}

// PostForm posts body to url. A response carrying RateLimitSentinel is
// retried after a linear backoff (delay, 2*delay, ...); the occurrence
// counter restarts on every call. Any other failure is retried without delay.
// When all attempts are used up the last error is returned.
func (c *Client) PostForm(ctx context.Context, url, body string, headers map[string]string) (string, error) {
	wReq := &WHTTPReq{Method: http.MethodPost, URL: url, Body: body}
	for name, value := range headers {
		wReq.Headers = append(wReq.Headers, WHTTPHeader{Name: name, Value: value})
	}

	var lastErr error
	rateLimitedCount := 0

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		res, err := c.SendHTTPRequest(ctx, wReq)
		if err == nil {
			err = checkStatus(url, res.StatusCode)
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			utils.Log.Debugf("POST %s failed (attempt %d/%d): %v", url, attempt, c.maxAttempts, err)
			lastErr = err
			continue
		}

		if strings.Contains(res.BodyString, RateLimitSentinel) {
			rateLimitedCount++
			lastErr = &HTTPError{URL: url, StatusCode: http.StatusTooManyRequests, Err: ErrRateLimited}
			if attempt == c.maxAttempts {
				break
			}
			wait := c.rateLimitDelay * time.Duration(rateLimitedCount)
			utils.Log.Warnf("Rate limited by store gateway, sleeping %s (attempt %d/%d)", wait, attempt, c.maxAttempts)
			if err := c.sleep(ctx, wait); err != nil {
				return "", err
			}
			continue
		}

		return res.BodyString, nil
	}

	return "", lastErr
}

func checkStatus(url string, status int) error {
	switch {
	case status == http.StatusNotFound:
		return &NotFoundError{URL: url}
	case status < 200 || status > 299:
		return &HTTPError{URL: url, StatusCode: status}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// leveledLogger routes retryablehttp logs to logrus at debug level.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) {
	utils.Log.WithFields(fields(kv)).Debug(msg)
}
func (leveledLogger) Info(msg string, kv ...interface{}) { utils.Log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogger) Debug(msg string, kv ...interface{}) {
	utils.Log.WithFields(fields(kv)).Debug(msg)
}
func (leveledLogger) Warn(msg string, kv ...interface{}) { utils.Log.WithFields(fields(kv)).Debug(msg) }

func fields(kv []interface{}) map[string]interface{} {
	f := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}

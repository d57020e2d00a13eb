package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cisnemotors/leadbot/core/logger"
	"github.com/cisnemotors/leadbot/core/netutil"
	"log/slog"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultResponseTimeout   = 10 * time.Second
	defaultClientTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 2
	defaultRetryBackoff      = 1 * time.Second
)

// Client posts outbound messages to the WhatsApp Cloud API.
type Client struct {
	token         string
	phoneNumberID string
	baseURL       string
	version       string
	http          *http.Client
}

// ClientOptions configure NewClient.
type ClientOptions struct {
	Token         string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	// HTTPClient overrides the tuned default, mainly for tests.
	HTTPClient *http.Client
}

// NewClient builds a Cloud API client with a transport tuned for short
// provider calls and transient-failure retries.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = buildHTTPClient()
	}
	return &Client{
		token:         opts.Token,
		phoneNumberID: opts.PhoneNumberID,
		baseURL:       opts.BaseURL,
		version:       opts.APIVersion,
		http:          httpClient,
	}
}

// Send posts one message. A non-2xx provider response is an error; callers
// are expected to log and continue rather than retry a delivered payload.
func (c *Client) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	took := logger.Took(start)
	if err != nil {
		logger.Error(ctx, "wa", "send.fail",
			slog.String("status", "fail"),
			slog.String("operation", msg.Type),
			slog.Duration("duration", took),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Error(ctx, "wa", "send.fail",
			slog.String("status", "fail"),
			slog.String("operation", msg.Type),
			slog.Int("http_code", resp.StatusCode),
			slog.Duration("duration", took),
			slog.String("payload", logger.SanitizeLimit(string(detail), 256)),
		)
		return fmt.Errorf("whatsapp: send: unexpected status %s", resp.Status)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.Debug(ctx, "wa", "send.success",
		slog.String("status", "ok"),
		slog.String("operation", msg.Type),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", took),
	)
	return nil
}

func buildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: defaultResponseTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	retry := &retryTransport{
		base:       transport,
		maxRetries: defaultRetryAttempts,
		backoff:    defaultRetryBackoff,
	}

	return &http.Client{
		Timeout:   defaultClientTimeout,
		Transport: retry,
	}
}

// retryTransport retries transient network failures before the request ever
// reached the provider. Delivered-but-failed responses are not retried, which
// keeps duplicate sends off the wire.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		currReq := req
		if attempt > 1 {
			currReq = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				currReq.Body = body
			} else if req.Body != nil {
				return nil, lastErr
			}
		}

		resp, err := base.RoundTrip(currReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break
		}

		delay := t.backoff * time.Duration(attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

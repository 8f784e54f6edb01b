package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"

	"voicetype/internal/domain"
)

const (
	transcriptionPath = "/audio/transcriptions"
	completionPath    = "/chat/completions"
	userAgent         = "voicetype/1.0"
)

var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"quota",
	"too many requests",
}

// Options configures the shared API client.
type Options struct {
	BaseURL string
	APIKey  string
	// Timeout bounds every single request.
	Timeout time.Duration
	// HTTPClient overrides the default HTTP/2 capable client.
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to an OpenAI-compatible API and classifies its failures.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: newTransport(), Timeout: opts.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    httpClient,
		logger:  opts.Logger,
	}
}

func newTransport() *http.Transport {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	_ = http2.ConfigureTransport(tr)
	return tr
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

func (r response) ok() bool { return r.status == http.StatusOK }

// rateLimited treats a 429 status and rate or quota wording in the body as
// the same condition.
func (r response) rateLimited() bool {
	if r.status == http.StatusTooManyRequests {
		return true
	}
	if r.ok() {
		return false
	}
	body := strings.ToLower(string(r.body))
	for _, marker := range rateLimitMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// message extracts error.message, falling back to the raw body.
func (r response) message() string {
	var parsed apiError
	if err := json.Unmarshal(r.body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	text := strings.TrimSpace(string(r.body))
	if text == "" {
		return http.StatusText(r.status)
	}
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}

// timedOut reports whether a failed request ran past its own deadline, as
// opposed to the endpoint being unreachable.
func timedOut(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return response{}, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.post(ctx, path, "application/json", body)
}

// post sends one request. A transport failure comes back as a connectivity
// error; any HTTP status is returned to the caller for classification.
func (c *Client) post(ctx context.Context, path string, contentType string, body []byte) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return response{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, domain.NewError(domain.ErrorCodeConnectivity, "could not reach "+c.baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return response{}, domain.NewError(domain.ErrorCodeConnectivity, "connection dropped while reading response", err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request finished")
	return response{status: resp.StatusCode, body: respBody}, nil
}

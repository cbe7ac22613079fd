// Package gemini extracts raw price data from page screenshots with the
// Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pricespy/backend/internal/domain"
)

// DefaultBaseURL is the public Gemini API endpoint
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// errQuotaExceeded marks a 429 from one model; the caller falls back
var errQuotaExceeded = errors.New("model quota exceeded")

// Config holds configuration for the Gemini client
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
	Logger            *zap.Logger
}

// Client handles communication with the Gemini API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	selector    ModelSelector
	maxRetries  int
	backoff     func(attempt int) time.Duration
	logger      *zap.Logger
}

// NewClient creates a new Gemini API client
func NewClient(config Config, selector ModelSelector) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rpm := config.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10 // free tier for flash models
	}
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.L()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      config.APIKey,
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rpm)/60), 1),
		selector:    selector,
		maxRetries:  maxRetries,
		backoff:     exponentialBackoff,
		logger:      logger.Named("gemini"),
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// ExtractPrice sends the screenshot and prompt to the first available model
// and returns the model's JSON object together with the model that produced
// it. A model that answers 429 is marked exhausted and the next one is tried.
func (c *Client) ExtractPrice(ctx context.Context, image []byte, prompt string) (domain.RawExtraction, string, error) {
	if len(image) == 0 {
		return nil, "", fmt.Errorf("%w: empty screenshot", domain.ErrInvalidRequest)
	}

	body, err := json.Marshal(newGenerateRequest(image, prompt))
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request: %w", err)
	}

	for {
		model, ok := c.selector.Next()
		if !ok {
			c.logger.Error("all models exhausted")
			return nil, "", domain.ErrModelsExhausted
		}

		respBody, err := c.generate(ctx, model, body)
		if errors.Is(err, errQuotaExceeded) {
			c.selector.MarkExhausted(model)
			c.logger.Warn("model quota exceeded, falling back", zap.String("model", model))
			continue
		}
		if err != nil {
			return nil, model, err
		}

		c.selector.RecordUsage(model)

		raw, err := ParseExtraction(respBody)
		if err != nil {
			return nil, model, err
		}
		return raw, model, nil
	}
}

// generate calls one model, retrying transient failures
func (c *Client) generate(ctx context.Context, model string, body []byte) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s:generateContent", c.baseURL, model)

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, endpoint, body)
		if err != nil {
			c.logger.Warn("request error", zap.String("model", model), zap.Int("attempt", attempt), zap.Error(err))
			lastErr = err
			if err := c.wait(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return respBody, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errQuotaExceeded
		case resp.StatusCode >= 500:
			c.logger.Warn("server error",
				zap.String("model", model),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode),
			)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrVisionAPIFailure, resp.StatusCode)
			if err := c.wait(ctx, attempt); err != nil {
				return nil, err
			}
		default:
			// Other 4xx responses will not improve on retry
			return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrVisionAPIFailure, resp.StatusCode, truncate(string(respBody), 500))
		}
	}

	c.logger.Error("all retries failed", zap.String("model", model), zap.Error(lastErr))
	return nil, lastErr
}

// doRequest executes an HTTP POST request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, endpoint string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PriceSpy/1.0")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVisionAPIFailure, err)
	}
	return resp, nil
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	if attempt >= c.maxRetries {
		return nil
	}
	timer := time.NewTimer(c.backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

func newGenerateRequest(image []byte, prompt string) generateRequest {
	return generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MimeType: http.DetectContentType(image),
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0,
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

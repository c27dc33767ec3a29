// Package generator adapts plan days to a remote OpenAI-compatible chat
// completions service and defensively parses what comes back.
package generator

import (
	"alcyxob/wellness-app/internal/config"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL      = "https://api.openai.com"
	defaultModel        = "gpt-4o-mini"
	defaultTimeout      = 60 * time.Second
	defaultTemperature  = 0.7
	defaultMaxTokens    = 4096
	chatCompletionsPath = "/v1/chat/completions"
	maxErrorBody        = 1 << 16
)

// Client calls the remote service once per GenerateDay. It never retries; a
// client-side token bucket keeps request bursts under control.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	limiter     *rate.Limiter
}

func NewClient(cfg config.GeneratorConfig) *Client {
	return NewClientWithHTTP(cfg, nil)
}

// NewClientWithHTTP lets tests point the client at an httptest server.
func NewClientWithHTTP(cfg config.GeneratorConfig, httpClient *http.Client) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  httpClient,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.temperature <= 0 {
		c.temperature = defaultTemperature
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if cfg.RequestsPerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateDay sends one request and returns the raw text of the first choice.
// Every failure is a *GenerationError.
func (c *Client) GenerateDay(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &GenerationError{Stage: StageRequest, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", &GenerationError{Stage: StageRequest, Err: err}
	}
	body := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req.Kind)},
			{Role: "user", Content: string(payload)},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: map[string]any{"type": "json_object"},
	}

	var resp chatCompletionResponse
	if err := c.doJSON(ctx, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &GenerationError{Stage: StageEmpty, Err: errors.New("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) doJSON(ctx context.Context, body any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return &GenerationError{Stage: StageRequest, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, &buf)
	if err != nil {
		return &GenerationError{Stage: StageRequest, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &GenerationError{Stage: StageTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &GenerationError{
			Stage:      StageStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("upstream responded: %s", strings.TrimSpace(string(raw))),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &GenerationError{Stage: StageParse, Err: fmt.Errorf("decode completion envelope: %w", err)}
	}
	return nil
}

package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/IshaanNene/RivalWatch/internal/config"
	"github.com/IshaanNene/RivalWatch/internal/observability"
	"github.com/IshaanNene/RivalWatch/internal/types"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMClient talks to an OpenAI-compatible chat completion endpoint.
type LLMClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewLLMClient creates a client from the llm config section. A client built
// without an API key is valid but every Generate call fails with
// types.ErrLLMDisabled. metrics may be nil.
func NewLLMClient(cfg config.LLMConfig, metrics *observability.Metrics, logger *slog.Logger) *LLMClient {
	c := &LLMClient{
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		metrics:     metrics,
		logger:      logger.With("component", "llm_client"),
	}
	if !cfg.Enabled() {
		return c
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	c.client = openai.NewClientWithConfig(oc)
	return c
}

// Enabled reports whether the client has credentials.
func (c *LLMClient) Enabled() bool { return c.client != nil }

// WithTemperature returns a copy of the client sampling at t.
func (c *LLMClient) WithTemperature(t float64) *LLMClient {
	clone := *c
	clone.temperature = float32(t)
	return &clone
}

// Generate sends prompt as a single user message and returns the first
// choice's content, trimmed.
func (c *LLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", types.ErrLLMDisabled
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.metrics != nil {
		c.metrics.LLMCalls.Add(1)
	}
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.failed()
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.failed()
		return "", fmt.Errorf("chat completion: no choices in response")
	}

	c.logger.Debug("completion received",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration", time.Since(start),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *LLMClient) failed() {
	if c.metrics != nil {
		c.metrics.LLMFailures.Add(1)
	}
}

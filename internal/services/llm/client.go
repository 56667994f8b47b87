package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notesmith/internal/services"
)

const (
	providerName       = "llm"
	defaultHTTPTimeout = 120 * time.Second
	defaultBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
)

var (
	// ErrBlocked reports that the provider refused or filtered the request.
	ErrBlocked = errors.New("llm: response blocked by provider")
	// ErrEmptyResponse reports a successful call that produced no usable text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	SystemPrompt   string
	TimeoutSeconds int
	Temperature    float64
	TopP           float64
	MaxTokens      int
}

// Client wraps an OpenAI-compatible chat completion API. Each Generate call is
// a single attempt; the caller owns the retry budget.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.cfg.Model
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers return the streaming schema even when stream=false.
		Delta        chatCompletionMessage `json:"delta"`
		Text         string                `json:"text"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	PromptFeedback *struct {
		BlockReason string `json:"block_reason"`
	} `json:"prompt_feedback"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

// Generate sends prompt as a single user message and returns the model text
// with any surrounding code fence removed.
//
// Errors wrap ErrBlocked when the provider refused or filtered the content,
// ErrEmptyResponse when nothing usable came back, *services.ProviderError for
// non-2xx responses, and services.ErrConfiguration when no key is set.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", services.Wrap(services.ErrValidation, "synthesize", "llm generate", "prompt required", nil)
	}
	if !c.Configured() {
		return "", services.Wrap(services.ErrConfiguration, "synthesize", "llm generate", "api key required", nil)
	}
	messages := make([]chatMessage, 0, 2)
	if system := strings.TrimSpace(c.cfg.SystemPrompt); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})
	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		MaxTokens:   c.cfg.MaxTokens,
	}

	completion, body, err := c.send(ctx, payload)
	if err != nil {
		return "", err
	}
	if completion.PromptFeedback != nil && strings.TrimSpace(completion.PromptFeedback.BlockReason) != "" {
		return "", fmt.Errorf("%w: block_reason=%s", ErrBlocked, completion.PromptFeedback.BlockReason)
	}
	content, finishReason, refusal := extractCompletion(completion)
	switch {
	case refusal != "":
		return "", fmt.Errorf("%w: refusal=%q", ErrBlocked, refusal)
	case finishReason == "content_filter" || finishReason == "safety":
		return "", fmt.Errorf("%w: finish_reason=%s", ErrBlocked, finishReason)
	case content == "":
		return "", fmt.Errorf("%w: finish_reason=%q response=%s", ErrEmptyResponse, finishReason, services.SummarizeSnippet(string(body)))
	}
	if cleaned := StripCodeFence(content); cleaned != "" {
		return cleaned, nil
	}
	return "", fmt.Errorf("%w: only a code fence was returned", ErrEmptyResponse)
}

func extractCompletion(completion chatCompletionResponse) (content, finishReason, refusal string) {
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if refusal == "" {
			refusal = firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal)
		}
		if text := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); text != "" {
			return text, finishReason, ""
		}
	}
	return "", finishReason, refusal
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) send(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, services.Wrap(services.ErrConfiguration, "synthesize", "llm request", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, nil, services.Wrap(services.ErrTransient, "synthesize", "llm request", fmt.Sprintf("http error (timeout=%s)", c.httpClient.Timeout), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, services.Wrap(services.ErrTransient, "synthesize", "llm request", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return completion, body, &services.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, services.Wrap(services.ErrTransient, "synthesize", "llm request", "decode response", err)
	}
	if completion.Error != nil {
		return completion, body, services.Wrap(services.ErrTransient, "synthesize", "llm request", "api error: "+strings.TrimSpace(completion.Error.Message), nil)
	}
	return completion, body, nil
}

// StripCodeFence removes a single surrounding ``` block, including an
// optional language tag such as xml or json.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		tag := strings.TrimSpace(body[:newline])
		if !strings.ContainsAny(tag, " <") {
			body = body[newline+1:]
		}
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

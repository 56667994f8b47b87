package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notesmith/internal/services"
	"notesmith/internal/transcript"
)

const (
	providerName       = "whisper"
	defaultHTTPTimeout = 30 * time.Minute
	// DefaultModel matches the faster-whisper server default.
	DefaultModel = "Systran/faster-whisper-small"
)

// Config captures the OpenAI-compatible transcription endpoint settings.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Language       string
	TimeoutSeconds int
}

// Client talks to an OpenAI-compatible /audio/transcriptions endpoint.
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

// NewClient constructs a transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL != "" && !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Endpoint returns the transcription URL.
func (c *Client) Endpoint() string {
	return c.cfg.BaseURL + "audio/transcriptions"
}

type verboseResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the media file at location and returns its timed segments.
func (c *Client) Transcribe(ctx context.Context, location string) ([]transcript.Segment, error) {
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "whisper", "base url required", nil)
	}
	body, contentType, err := c.buildForm(location)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), body)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "whisper", "build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "whisper", fmt.Sprintf("http error (timeout=%s)", c.httpClient.Timeout), err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "whisper", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := services.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &services.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
			RetryAfter: retryAfter,
		}
	}

	var decoded verboseResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "whisper", "decode response "+services.SummarizeSnippet(string(payload)), err)
	}
	segments := make([]transcript.Segment, 0, len(decoded.Segments))
	for _, seg := range decoded.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{Start: seg.Start, End: seg.End, Text: text})
	}
	return segments, nil
}

// Ping checks that the endpoint answers HTTP at all. Any response, including
// 404 or 405, counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfiguration, "transcribe", "whisper", "base url required", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"models", nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "transcribe", "whisper", "build request", err)
	}
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcribe", "whisper", "endpoint unreachable", err)
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) buildForm(location string) (io.Reader, string, error) {
	file, err := os.Open(location)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, "transcribe", "whisper", "open media", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(location))
	if err != nil {
		return nil, "", fmt.Errorf("whisper form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", services.Wrap(services.ErrExternalTool, "transcribe", "whisper", "read media", err)
	}
	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	if lang := strings.TrimSpace(c.cfg.Language); lang != "" {
		fields = append(fields, [2]string{"language", lang})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("whisper form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("whisper form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

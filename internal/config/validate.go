package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if c.Store.DSN == "" {
			return errors.New("store.dsn must be set when store.driver is postgres (or set NOTESMITH_DATABASE_URL)")
		}
		return nil
	default:
		return fmt.Errorf("store.driver %q is not supported (use sqlite or postgres)", c.Store.Driver)
	}
}

func (c *Config) validateEndpoints() error {
	for key, raw := range map[string]string{
		"transcription.base_url": c.Transcription.BaseURL,
		"llm.base_url":           c.LLM.BaseURL,
	} {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must be an http or https URL", key)
		}
	}
	return nil
}

func (c *Config) validateRetry() error {
	if err := ensurePositiveMap(map[string]int{
		"retry.max_attempts":       c.Retry.MaxAttempts,
		"retry.base_delay_seconds": c.Retry.BaseDelaySeconds,
		"retry.max_delay_seconds":  c.Retry.MaxDelaySeconds,
	}); err != nil {
		return err
	}
	if c.Retry.MaxDelaySeconds < c.Retry.BaseDelaySeconds {
		return errors.New("retry.max_delay_seconds must be >= retry.base_delay_seconds")
	}
	if c.Retry.JitterPercent > 100 {
		return errors.New("retry.jitter_percent must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":              c.Workflow.Workers,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"feeds.max_items":               c.Feeds.MaxItems,
		"feeds.timeout_seconds":         c.Feeds.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.TopP <= 0 || c.LLM.TopP > 1 {
		return errors.New("llm.top_p must be within (0, 1]")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil {
		return fmt.Errorf("notifications.ntfy_topic: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return errors.New("notifications.ntfy_topic must be a full http or https topic URL")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

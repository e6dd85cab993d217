package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.DataDir, &c.Paths.OutputDir, &c.Paths.LogDir} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}
	for _, field := range []*string{&c.Ingest.ReviewsFile, &c.Ingest.EmailsFile} {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)

	if c.Workflow.WorkerCount <= 0 {
		c.Workflow.WorkerCount = defaultWorkerCount
	}
	if c.Workflow.MaxRevisions < 0 {
		c.Workflow.MaxRevisions = defaultMaxRevisions
	}
	if c.Workflow.RetryAttempts <= 0 {
		c.Workflow.RetryAttempts = defaultRetryAttempts
	}
	if c.Workflow.RetryBackoffMS < 0 {
		c.Workflow.RetryBackoffMS = defaultRetryBackoffMS
	}
	if c.Workflow.RetryBackoffMaxMS < c.Workflow.RetryBackoffMS {
		c.Workflow.RetryBackoffMaxMS = c.Workflow.RetryBackoffMS
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RequestsPerSecond <= 0 {
		c.LLM.RequestsPerSecond = defaultLLMRequestsPerSec
	}
	if c.LLM.RequestBurst <= 0 {
		c.LLM.RequestBurst = defaultLLMRequestBurst
	}
	return nil
}

// Validate checks configuration invariants that normalization cannot repair.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if c.Paths.OutputDir == "" {
		return fmt.Errorf("config: output_dir must not be empty")
	}
	if c.Workflow.ConfidenceThreshold < 0 || c.Workflow.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: confidence_threshold must be between 0 and 1, got %v", c.Workflow.ConfidenceThreshold)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: unsupported log format %q", c.Logging.Format)
	}
	return nil
}

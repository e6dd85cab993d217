package config

const (
	defaultDataDir             = "~/.local/share/triage/data"
	defaultOutputDir           = "~/.local/share/triage/outputs"
	defaultLogDir              = "~/.local/share/triage/logs"
	defaultReviewsFile         = "data/app_store_reviews.csv"
	defaultEmailsFile          = "data/support_emails.csv"
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "openai/gpt-4o-mini"
	defaultLLMReferer          = "https://github.com/five82/triage"
	defaultLLMTitle            = "Triage Feedback Pipeline"
	defaultLLMTimeoutSeconds   = 60
	defaultLLMRequestsPerSec   = 2.0
	defaultLLMRequestBurst     = 4
	defaultWorkerCount         = 4
	defaultMaxRevisions        = 2
	defaultRetryAttempts       = 3
	defaultRetryBackoffMS      = 2000
	defaultRetryBackoffMaxMS   = 15000
	defaultConfidenceThreshold = 0.6
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultNtfyRequestTimeout  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Ingest: Ingest{
			ReviewsFile: defaultReviewsFile,
			EmailsFile:  defaultEmailsFile,
		},
		LLM: LLM{
			BaseURL:           defaultLLMBaseURL,
			Model:             defaultLLMModel,
			Referer:           defaultLLMReferer,
			Title:             defaultLLMTitle,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			RequestsPerSecond: defaultLLMRequestsPerSec,
			RequestBurst:      defaultLLMRequestBurst,
		},
		Workflow: Workflow{
			WorkerCount:         defaultWorkerCount,
			MaxRevisions:        defaultMaxRevisions,
			RetryAttempts:       defaultRetryAttempts,
			RetryBackoffMS:      defaultRetryBackoffMS,
			RetryBackoffMaxMS:   defaultRetryBackoffMaxMS,
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Batch:          true,
			Errors:         true,
		},
	}
}

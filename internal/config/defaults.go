package config

const (
	defaultConfigPath              = "~/.config/notesmith/config.toml"
	defaultDataDir                 = "~/.local/share/notesmith"
	defaultMediaDir                = "~/.local/share/notesmith/media"
	defaultLogDir                  = "~/.local/share/notesmith/logs"
	defaultLogRetentionDays        = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultAPIBind                 = "127.0.0.1:7488"
	defaultStoreDriver             = "sqlite"
	defaultAcquireBinary           = "yt-dlp"
	defaultAcquireFormat           = "bestaudio/best"
	defaultAcquireTimeoutSeconds   = 1800
	defaultAcquireMinFreeMB        = 512
	defaultTranscriptionBaseURL    = "http://localhost:8001/v1/"
	defaultTranscriptionModel      = "Systran/faster-whisper-small"
	defaultTranscriptionTimeout    = 1800
	defaultTranscriptionAPIKey     = "cant-be-empty"
	defaultLLMBaseURL              = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                = "google/gemini-2.5-flash"
	defaultLLMReferer              = "https://github.com/notesmith/notesmith"
	defaultLLMTitle                = "notesmith"
	defaultLLMTimeoutSeconds       = 180
	defaultLLMTemperature          = 0.7
	defaultLLMTopP                 = 0.95
	defaultLLMMaxTokens            = 8192
	defaultRetryMaxAttempts        = 3
	defaultRetryBaseDelaySeconds   = 1
	defaultRetryMaxDelaySeconds    = 600
	defaultRetryJitterPercent      = 25
	defaultWorkflowWorkers         = 2
	defaultQueuePollInterval       = 5
	defaultErrorRetryInterval      = 10
	defaultHeartbeatInterval       = 15
	defaultHeartbeatTimeout        = 120
	defaultFeedMaxItems            = 10
	defaultFeedTimeoutSeconds      = 30
	defaultNtfyRequestTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			MediaDir: defaultMediaDir,
			LogDir:   defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		Acquire: Acquire{
			Binary:         defaultAcquireBinary,
			Format:         defaultAcquireFormat,
			TimeoutSeconds: defaultAcquireTimeoutSeconds,
			MinFreeMB:      defaultAcquireMinFreeMB,
		},
		Transcription: Transcription{
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature:    defaultLLMTemperature,
			TopP:           defaultLLMTopP,
			MaxTokens:      defaultLLMMaxTokens,
		},
		Retry: Retry{
			MaxAttempts:      defaultRetryMaxAttempts,
			BaseDelaySeconds: defaultRetryBaseDelaySeconds,
			MaxDelaySeconds:  defaultRetryMaxDelaySeconds,
			JitterPercent:    defaultRetryJitterPercent,
		},
		Cache: Cache{
			Enabled: true,
		},
		Workflow: Workflow{
			Workers:            defaultWorkflowWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Feeds: Feeds{
			MaxItems:       defaultFeedMaxItems,
			TimeoutSeconds: defaultFeedTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

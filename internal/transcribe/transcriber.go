package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"notesmith/internal/config"
	"notesmith/internal/fileutil"
	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/services/whisper"
	"notesmith/internal/stage"
	"notesmith/internal/transcript"
)

// Provider converts a media file into timed segments.
type Provider interface {
	Transcribe(ctx context.Context, location string) ([]transcript.Segment, error)
}

// Pinger is implemented by providers that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Transcriber is the transcribe stage executor.
type Transcriber struct {
	provider Provider
	logger   *slog.Logger
}

// New constructs the stage using the configured whisper endpoint.
func New(cfg *config.Config, logger *slog.Logger) *Transcriber {
	client := whisper.NewClient(whisper.Config{
		BaseURL:        cfg.Transcription.BaseURL,
		APIKey:         cfg.Transcription.APIKey,
		Model:          cfg.Transcription.Model,
		Language:       cfg.Transcription.Language,
		TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
	})
	return NewWithProvider(client, logger)
}

// NewWithProvider allows injecting a custom provider (used for tests).
func NewWithProvider(provider Provider, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		provider: provider,
		logger:   logging.NewComponentLogger(logger, "transcribe"),
	}
}

// Name implements stage.Executor.
func (t *Transcriber) Name() stage.Name { return stage.Transcribe }

// Execute transcribes the job's media file.
func (t *Transcriber) Execute(ctx context.Context, job *queue.Job) stage.Result {
	if job == nil {
		return stage.Fail(stage.NotFound("job missing"))
	}
	logger := logging.WithContext(ctx, t.logger)

	if err := fileutil.CheckReadable(job.MediaPath); err != nil {
		return stage.Fail(stage.PreconditionMissing("media file unavailable", err))
	}

	logger.Info("transcribing media",
		logging.String("location", job.MediaPath),
		logging.String(logging.FieldEventType, "transcribe_start"),
	)
	segments, err := t.provider.Transcribe(ctx, job.MediaPath)
	if err != nil {
		logger.Warn("transcription request failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "transcribe_failed"),
			logging.String(logging.FieldErrorHint, "check transcription.base_url and that the server is running"),
			logging.String(logging.FieldImpact, "stage will be retried if the failure is transient"),
		)
		return stage.Fail(stage.FromError("transcription request failed", err))
	}

	text := transcript.Format(segments)
	if strings.TrimSpace(text) == "" {
		return stage.Fail(stage.Rejected("empty transcript", nil, true))
	}

	logger.Info("transcription complete",
		logging.Int("segments", len(segments)),
		logging.Float64("duration_seconds", transcript.Duration(segments)),
		logging.String(logging.FieldEventType, "transcribe_complete"),
	)
	return stage.Success(
		fmt.Sprintf("transcribed %d segments", len(segments)),
		queue.Patch{}.WithTranscript(text),
	)
}

// HealthCheck pings the transcription endpoint when the provider supports it.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcribe"
	if t.provider == nil {
		return stage.Unhealthy(name, "transcription provider unavailable")
	}
	pinger, ok := t.provider.(Pinger)
	if !ok {
		return stage.Healthy(name)
	}
	if err := pinger.Ping(ctx); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("endpoint unreachable: %v", err))
	}
	return stage.Healthy(name)
}

package synthesize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"notesmith/internal/config"
	"notesmith/internal/logging"
	"notesmith/internal/notes"
	"notesmith/internal/queue"
	"notesmith/internal/services"
	"notesmith/internal/services/llm"
	"notesmith/internal/stage"
	"notesmith/internal/transcript"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type configuredGenerator interface {
	Configured() bool
}

// Synthesizer is the synthesize stage executor.
type Synthesizer struct {
	generator    Generator
	retryBlocked bool
	logger       *slog.Logger
}

// New constructs the stage using the configured chat completion endpoint.
func New(cfg *config.Config, logger *slog.Logger) *Synthesizer {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		Temperature:    cfg.LLM.Temperature,
		TopP:           cfg.LLM.TopP,
		MaxTokens:      cfg.LLM.MaxTokens,
	})
	return NewWithGenerator(client, cfg.LLM.RetryBlocked, logger)
}

// NewWithGenerator allows injecting a custom generator (used for tests).
// retryBlocked controls whether content-policy blocks are retried.
func NewWithGenerator(generator Generator, retryBlocked bool, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		generator:    generator,
		retryBlocked: retryBlocked,
		logger:       logging.NewComponentLogger(logger, "synthesize"),
	}
}

// Name implements stage.Executor.
func (s *Synthesizer) Name() stage.Name { return stage.Synthesize }

// Execute generates notes from the job's transcript.
func (s *Synthesizer) Execute(ctx context.Context, job *queue.Job) stage.Result {
	if job == nil {
		return stage.Fail(stage.NotFound("job missing"))
	}
	logger := logging.WithContext(ctx, s.logger)

	segments := transcript.Parse(job.Transcript)
	if len(segments) == 0 {
		return stage.Fail(stage.PreconditionMissing("transcript has no timed segments", nil))
	}

	logger.Info("generating notes",
		logging.Int("segments", len(segments)),
		logging.String(logging.FieldEventType, "synthesize_start"),
	)
	text, err := s.generator.Generate(ctx, notes.BuildPrompt(segments))
	if err != nil {
		failure := s.classify(err)
		logger.Warn("notes generation failed",
			logging.Error(err),
			logging.Bool("retryable", failure.Retryable),
			logging.String(logging.FieldEventType, "synthesize_failed"),
			logging.String(logging.FieldErrorHint, "check llm.api_key, llm.model and provider status"),
			logging.String(logging.FieldImpact, "notes not generated for this attempt"),
		)
		return stage.Fail(failure)
	}

	linked := notes.LinkTimestamps(text, job.SourceRef)
	doc := notes.Parse(linked)
	logger.Info("notes generated",
		logging.Int("sections", len(doc.Sections)),
		logging.Int("characters", len(linked)),
		logging.String(logging.FieldEventType, "synthesize_complete"),
	)
	return stage.Success(
		fmt.Sprintf("notes generated (sections=%d)", len(doc.Sections)),
		queue.Patch{}.WithNotes(linked),
	)
}

func (s *Synthesizer) classify(err error) *stage.Failure {
	switch {
	case errors.Is(err, llm.ErrBlocked):
		return stage.Rejected("notes generation blocked", err, s.retryBlocked)
	case errors.Is(err, llm.ErrEmptyResponse):
		return stage.Rejected("notes generation returned no content", err, true)
	case errors.Is(err, services.ErrConfiguration), errors.Is(err, services.ErrValidation):
		return stage.Rejected("notes generation not possible", err, false)
	default:
		return stage.FromError("notes generation failed", err)
	}
}

// HealthCheck reports whether the generator has credentials.
func (s *Synthesizer) HealthCheck(context.Context) stage.Health {
	const name = "synthesize"
	if s.generator == nil {
		return stage.Unhealthy(name, "llm client unavailable")
	}
	if configured, ok := s.generator.(configuredGenerator); ok && !configured.Configured() {
		return stage.Unhealthy(name, "llm api key not configured")
	}
	return stage.Healthy(name)
}

package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"notesmith/internal/config"
	"notesmith/internal/fileutil"
	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/services"
	"notesmith/internal/services/ytdlp"
	"notesmith/internal/stage"
)

// MediaFetcher downloads a source reference to a destination template.
type MediaFetcher interface {
	Fetch(ctx context.Context, ref, dest string) (mediaID, location string, err error)
}

// Acquirer is the acquire stage executor.
type Acquirer struct {
	mediaDir  string
	minFreeMB uint64
	binary    string
	fetcher   MediaFetcher
	diskSpace func(string) (fileutil.Space, error)
	newID     func() string
	logger    *slog.Logger
}

// Option customizes an Acquirer.
type Option func(*Acquirer)

// WithFetcher replaces the yt-dlp client.
func WithFetcher(fetcher MediaFetcher) Option {
	return func(a *Acquirer) {
		if fetcher != nil {
			a.fetcher = fetcher
		}
	}
}

// WithDiskSpace overrides the free-space probe.
func WithDiskSpace(fn func(string) (fileutil.Space, error)) Option {
	return func(a *Acquirer) {
		if fn != nil {
			a.diskSpace = fn
		}
	}
}

// New constructs the acquire stage from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Acquirer {
	a := &Acquirer{
		mediaDir:  cfg.Paths.MediaDir,
		binary:    cfg.Acquire.Binary,
		diskSpace: fileutil.DiskSpace,
		newID:     uuid.NewString,
		logger:    logging.NewComponentLogger(logger, "acquire"),
	}
	if cfg.Acquire.MinFreeMB > 0 {
		a.minFreeMB = uint64(cfg.Acquire.MinFreeMB)
	}
	a.fetcher = ytdlp.New(ytdlp.Config{
		Binary:         cfg.Acquire.Binary,
		Format:         cfg.Acquire.Format,
		TimeoutSeconds: cfg.Acquire.TimeoutSeconds,
		ExtraArgs:      cfg.Acquire.ExtraArgs,
	})
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements stage.Executor.
func (a *Acquirer) Name() stage.Name { return stage.Acquire }

// Execute downloads the job's source into a new media file.
func (a *Acquirer) Execute(ctx context.Context, job *queue.Job) stage.Result {
	if job == nil {
		return stage.Fail(stage.NotFound("job missing"))
	}
	logger := logging.WithContext(ctx, a.logger)

	if err := os.MkdirAll(a.mediaDir, 0o755); err != nil {
		return stage.Fail(stage.Rejected("create media directory", err, false))
	}
	if failure := a.checkFreeSpace(); failure != nil {
		logging.WarnWithContext(logger, "media directory low on space", "disk_low",
			logging.String("media_dir", a.mediaDir),
			logging.String(logging.FieldErrorHint, "free space in media_dir or lower acquire.min_free_mb"),
			logging.String(logging.FieldImpact, "download deferred until space is available"),
		)
		return stage.Fail(failure)
	}

	id := a.newID()
	dest := filepath.Join(a.mediaDir, id+".%(ext)s")
	logger.Info("downloading media",
		logging.String("source", job.SourceRef),
		logging.String("media_id", id),
		logging.String(logging.FieldEventType, "acquire_start"),
	)

	mediaID, location, err := a.fetcher.Fetch(ctx, job.SourceRef, dest)
	if err != nil {
		logger.Warn("media download failed",
			logging.String("source", job.SourceRef),
			logging.Error(err),
			logging.String(logging.FieldEventType, "acquire_failed"),
			logging.String(logging.FieldErrorHint, "check the URL and yt-dlp output"),
			logging.String(logging.FieldImpact, "stage will be retried if the failure is transient"),
		)
		return stage.Fail(classify(err))
	}
	if strings.TrimSpace(location) == "" {
		logging.WarnWithContext(logger, "downloader reported no media file", "acquire_failed",
			logging.String("source", job.SourceRef),
			logging.String(logging.FieldErrorHint, "check the yt-dlp output template and --print support"),
			logging.String(logging.FieldImpact, "job fails without a media checkpoint"),
		)
		return stage.Fail(stage.Rejected("downloader reported no media file", nil, false))
	}
	if mediaID == "" {
		mediaID = id
	}

	logger.Info("media downloaded",
		logging.String("media_id", mediaID),
		logging.String("location", location),
		logging.String(logging.FieldEventType, "acquire_complete"),
	)
	return stage.Success(
		fmt.Sprintf("downloaded %s", filepath.Base(location)),
		queue.Patch{}.WithMedia(mediaID, location),
	)
}

func (a *Acquirer) checkFreeSpace() *stage.Failure {
	if a.minFreeMB == 0 || a.diskSpace == nil {
		return nil
	}
	space, err := a.diskSpace(a.mediaDir)
	if err != nil {
		return stage.Transient("check free space", err, 0)
	}
	if space.FreeMB() < a.minFreeMB {
		return stage.Transient(
			fmt.Sprintf("insufficient free space in %s: %d MB available, %d MB required", a.mediaDir, space.FreeMB(), a.minFreeMB),
			nil, 0,
		)
	}
	return nil
}

func classify(err error) *stage.Failure {
	switch {
	case errors.Is(err, ytdlp.ErrUnavailable):
		return stage.Rejected("media unavailable", err, false)
	case errors.Is(err, services.ErrConfiguration), errors.Is(err, services.ErrValidation):
		return stage.Rejected("download not possible", err, false)
	default:
		return stage.FromError("download failed", err)
	}
}

// HealthCheck reports whether the downloader binary is installed.
func (a *Acquirer) HealthCheck(ctx context.Context) stage.Health {
	const name = "acquire"
	if strings.TrimSpace(a.mediaDir) == "" {
		return stage.Unhealthy(name, "media directory not configured")
	}
	binary := strings.TrimSpace(a.binary)
	if binary == "" {
		return stage.Unhealthy(name, "yt-dlp binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("yt-dlp binary %q not found", binary))
	}
	return stage.Healthy(name)
}

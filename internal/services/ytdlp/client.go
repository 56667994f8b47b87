package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"notesmith/internal/services"
)

const (
	// DefaultBinary is the executable looked up on PATH.
	DefaultBinary = "yt-dlp"
	// DefaultFormat selects the best audio-only stream with a fallback.
	DefaultFormat = "bestaudio/best"

	extTemplate = ".%(ext)s"
)

// ErrUnavailable reports that the source cannot be downloaded at all
// (unsupported site, removed or private media). Retrying will not help.
var ErrUnavailable = errors.New("yt-dlp: media unavailable")

var unavailableMarkers = []string{
	"Unsupported URL",
	"Video unavailable",
	"Private video",
}

// Runner abstracts command execution for testability.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) (stdout, stderr []byte, err error)
}

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(runner Runner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// Config captures the yt-dlp invocation settings.
type Config struct {
	Binary         string
	Format         string
	TimeoutSeconds int
	ExtraArgs      []string
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	cfg     Config
	timeout time.Duration
	runner  Runner
}

// New constructs a yt-dlp client.
func New(cfg Config, opts ...Option) *Client {
	cfg.Binary = strings.TrimSpace(cfg.Binary)
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	cfg.Format = strings.TrimSpace(cfg.Format)
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	client := &Client{cfg: cfg, runner: commandRunner{}}
	if cfg.TimeoutSeconds > 0 {
		client.timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Binary returns the configured executable name.
func (c *Client) Binary() string {
	return c.cfg.Binary
}

// Fetch downloads ref to dest, a yt-dlp output template ending in
// ".%(ext)s". The media ID is the template's base name; the location is the
// final file path reported by yt-dlp after any move.
func (c *Client) Fetch(ctx context.Context, ref, dest string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", services.Wrap(services.ErrValidation, "acquire", "yt-dlp", "source reference required", nil)
	}
	mediaID := MediaIDFromTemplate(dest)
	if mediaID == "" {
		return "", "", services.Wrap(services.ErrValidation, "acquire", "yt-dlp", "destination template required", nil)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stdout, stderr, err := c.runner.Run(ctx, c.cfg.Binary, c.buildArgs(ref, dest))
	if err != nil {
		return "", "", classifyFailure(ctx, err, stderr)
	}

	location := lastNonEmptyLine(stdout)
	if location == "" {
		location, err = globDownloaded(dest)
		if err != nil {
			return "", "", err
		}
	}
	if _, err := os.Stat(location); err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, "acquire", "yt-dlp", "reported file missing", err)
	}
	return mediaID, location, nil
}

func (c *Client) buildArgs(ref, dest string) []string {
	args := []string{
		"-f", c.cfg.Format,
		"--no-playlist",
		"--no-progress",
		"-o", dest,
		"--print", "after_move:filepath",
	}
	args = append(args, c.cfg.ExtraArgs...)
	return append(args, ref)
}

// MediaIDFromTemplate returns the base name of a yt-dlp output template.
func MediaIDFromTemplate(dest string) string {
	base := filepath.Base(strings.TrimSpace(dest))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, extTemplate)
}

func classifyFailure(ctx context.Context, err error, stderr []byte) error {
	detail := lastNonEmptyLine(stderr)
	for _, marker := range unavailableMarkers {
		if bytes.Contains(stderr, []byte(marker)) {
			return fmt.Errorf("%w: %s", ErrUnavailable, detail)
		}
	}
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "acquire", "yt-dlp", "download timed out", ctxErr)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return services.Wrap(services.ErrConfiguration, "acquire", "yt-dlp", "binary not found", err)
	}
	return services.Wrap(services.ErrExternalTool, "acquire", "yt-dlp", detail, err)
}

func globDownloaded(dest string) (string, error) {
	pattern := strings.TrimSuffix(dest, extTemplate) + ".*"
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "acquire", "yt-dlp", "glob output", err)
	}
	candidates := matches[:0]
	for _, match := range matches {
		if strings.HasSuffix(match, ".part") || strings.HasSuffix(match, ".ytdl") {
			continue
		}
		candidates = append(candidates, match)
	}
	if len(candidates) == 0 {
		return "", services.Wrap(services.ErrExternalTool, "acquire", "yt-dlp", "no output file produced", nil)
	}
	sort.Strings(candidates)
	return candidates[0], nil
}

func lastNonEmptyLine(data []byte) string {
	var last string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	return last
}

type commandRunner struct{}

func (commandRunner) Run(ctx context.Context, binary string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("run %s: %w", binary, err)
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

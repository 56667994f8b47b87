package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"notesmith/internal/config"
	"notesmith/internal/deps"
	"notesmith/internal/fileutil"
	"notesmith/internal/services/whisper"
)

// CheckTranscription verifies that the transcription endpoint answers HTTP.
// It uses a 10-second timeout and a single attempt.
func CheckTranscription(ctx context.Context, cfg config.Transcription) Result {
	const name = "Transcription endpoint"

	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Result{Name: name, Detail: "base_url missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := whisper.NewClient(whisper.Config{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		Model:          cfg.Model,
		TimeoutSeconds: 10,
	})
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	return Result{Name: name, Passed: true, Detail: client.Endpoint()}
}

// CheckLLM verifies that the note generation endpoint has credentials. No
// request is sent: a completion call costs tokens.
func CheckLLM(cfg config.LLM) Result {
	const name = "LLM"

	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing (set llm.api_key or LLM_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s via %s", cfg.Model, cfg.BaseURL)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minMB megabytes available.
func CheckFreeSpace(name, path string, minMB int) Result {
	space, err := fileutil.DiskSpace(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	free := space.FreeMB()
	if minMB > 0 && free < uint64(minMB) {
		return Result{Name: name, Detail: fmt.Sprintf("%d MB free, %d MB required", free, minMB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MB free", free)}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Acquire.Binary,
			Description: "Required for media download",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "Used by yt-dlp to extract and remux audio",
			Optional:    true,
		},
	})
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (endpoint unreachable)"
	}
	return err.Error()
}

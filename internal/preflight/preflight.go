package preflight

import (
	"context"

	"notesmith/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Media free space", cfg.Paths.MediaDir, cfg.Acquire.MinFreeMB),
	}
	results = append(results, DependencyResults(CheckSystemDeps(ctx, cfg))...)
	results = append(results, CheckTranscription(ctx, cfg.Transcription))
	results = append(results, CheckLLM(cfg.LLM))
	return results
}

// Package daemonrun assembles and runs the notesmithd process.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"notesmith/internal/config"
	"notesmith/internal/daemon"
	"notesmith/internal/logging"
	"notesmith/internal/preflight"
	"notesmith/internal/queue"
	"notesmith/internal/stageexec"
	"notesmith/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Ready, when non-nil, receives the API address once the daemon is serving.
	Ready func(apiAddress string)
}

// Run starts the notesmith daemon and blocks until ctx is canceled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "notesmithd*.log",
		filepath.Join(cfg.Paths.LogDir, logging.DaemonLogName))

	lock := daemon.NewInstanceLock(cfg.LockPath())
	if err := lock.Acquire(); err != nil {
		return err
	}
	// The daemon takes ownership of the lock once constructed.
	owned := false
	defer func() {
		if !owned {
			_ = lock.Release()
		}
	}()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open record store", "store_open_failed",
			logging.String("driver", cfg.Store.Driver),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store.driver and store.dsn"),
		)
		return err
	}

	pipeline := stageexec.NewPipeline(cfg, store, workflow.StageSet{}, logger)
	manager := workflow.NewManager(cfg, store, pipeline.Coordinator, logger)

	d, err := daemon.New(cfg, store, logger, manager, pipeline.Intake, lock)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	owned = true
	defer d.Close()

	checkCtx, checkCancel := context.WithTimeout(signalCtx, 15*time.Second)
	results := preflight.RunAll(checkCtx, cfg)
	checkCancel()
	preflight.LogResults(logger, results)
	d.SetChecks(results)
	logStartup(logger, cfg, store)

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api.bind and record store access"),
		)
		return err
	}
	if opts.Ready != nil {
		opts.Ready(d.APIAddress())
	}

	<-signalCtx.Done()
	logger.Info("notesmith daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func logStartup(logger *slog.Logger, cfg *config.Config, store *queue.Store) {
	logger.Info("daemon configuration",
		logging.String(logging.FieldEventType, "daemon_config"),
		logging.String("store_driver", store.Driver()),
		logging.String("store_location", store.Location()),
		logging.String("api_bind", cfg.API.Bind),
		logging.Bool("api_auth", strings.TrimSpace(cfg.API.Token) != "" || strings.TrimSpace(cfg.API.JWTSecret) != ""),
		logging.Int("workers", cfg.Workflow.Workers),
		logging.Bool("cache_enabled", cfg.Cache.Enabled),
		logging.String("transcription_model", cfg.Transcription.Model),
		logging.String("llm_model", cfg.LLM.Model),
	)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the process id recorded in the daemon pid file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

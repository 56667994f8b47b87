package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"notesmith/internal/api"
	"notesmith/internal/config"
	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/stageexec"
	"notesmith/internal/workflow"
)

type commandContext struct {
	configFlag string
	jsonOutput bool

	// stages overrides the production executors when non-zero.
	stages    workflow.StageSet
	fileCheck func(string) bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger returns a console logger on stderr. Job commands keep it at warn
// so table output stays clean.
func (c *commandContext) logger(level string) *slog.Logger {
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) withStore(fn func(*config.Config, *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func (c *commandContext) withJobs(fn func(*api.JobService) error) error {
	return c.withStore(func(cfg *config.Config, store *queue.Store) error {
		logger := c.logger("warn")
		return fn(api.NewJobService(store, stageexec.NewIntake(cfg, store, logger)))
	})
}

func (c *commandContext) pipeline(cfg *config.Config, store *queue.Store, logger *slog.Logger) *stageexec.Pipeline {
	var opts []workflow.CoordinatorOption
	if c.fileCheck != nil {
		opts = append(opts, workflow.WithFileCheck(c.fileCheck))
	}
	return stageexec.NewPipeline(cfg, store, c.stages, logger, opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

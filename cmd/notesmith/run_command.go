package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"notesmith/internal/api"
	"notesmith/internal/config"
	"notesmith/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var sections bool
	cmd := &cobra.Command{
		Use:   "run <url>",
		Short: "Generate notes for a URL in the foreground without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				logger := ctx.logger(logLevel)
				outcome, err := ctx.pipeline(cfg, store, logger).Run(signalCtx, args[0], logger)
				if err != nil {
					return err
				}
				job := api.FromJob(outcome.Job)
				if err := ctx.emit(cmd, job, func() string { return renderJobDetail(job, sections) }); err != nil {
					return err
				}
				if outcome.Job.Status == queue.StatusFailed {
					return fmt.Errorf("job %s failed: %s", outcome.Job.ID, outcome.Job.LastError)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level for progress output on stderr")
	cmd.Flags().BoolVar(&sections, "sections", false, "Render notes as parsed sections")
	return cmd
}

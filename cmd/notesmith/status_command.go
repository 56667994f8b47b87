package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notesmith/internal/api"
	"notesmith/internal/config"
	"notesmith/internal/daemon"
	"notesmith/internal/daemonrun"
	"notesmith/internal/language"
	"notesmith/internal/notifications"
	"notesmith/internal/preflight"
	"notesmith/internal/queue"
)

type statusReport struct {
	DaemonRunning bool              `json:"daemonRunning"`
	PID           int               `json:"pid,omitempty"`
	StoreDriver   string            `json:"storeDriver"`
	StoreLocation string            `json:"storeLocation"`
	Language      string            `json:"transcriptionLanguage"`
	Notifications bool              `json:"notifications"`
	Checks        []api.CheckStatus `json:"checks"`
	QueueStats    map[string]int    `json:"queueStats"`
	TaskStats     map[string]int    `json:"taskStats"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state, preflight checks, and queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				report, err := buildStatusReport(cmd.Context(), cfg, store)
				if err != nil {
					return err
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				return ctx.emit(cmd, report, func() string { return renderStatusReport(report, colorize) })
			})
		},
	}
}

func buildStatusReport(ctx context.Context, cfg *config.Config, store *queue.Store) (statusReport, error) {
	report := statusReport{
		StoreDriver:   store.Driver(),
		StoreLocation: store.Location(),
		Language:      language.DisplayName(cfg.Transcription.Language),
		Notifications: notifications.Enabled(notifications.NewService(cfg)),
	}
	held, err := daemon.IsHeld(cfg.LockPath())
	if err != nil {
		return report, err
	}
	report.DaemonRunning = held
	if held {
		if pid, err := daemonrun.ReadPID(cfg.PIDPath()); err == nil {
			report.PID = pid
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	report.Checks = api.FromPreflight(preflight.RunAll(checkCtx, cfg))
	cancel()

	stats, err := store.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("queue stats: %w", err)
	}
	taskStats, err := store.TaskStats(ctx)
	if err != nil {
		return report, fmt.Errorf("task stats: %w", err)
	}
	report.QueueStats = api.MergeQueueStats(stats)
	report.TaskStats = api.MergeTaskStats(taskStats)
	return report, nil
}

func renderStatusReport(report statusReport, colorize bool) string {
	var lines []string
	lines = append(lines, renderSectionHeader("Daemon", colorize))
	if report.DaemonRunning {
		detail := "Running"
		if report.PID > 0 {
			detail = "Running (pid " + strconv.Itoa(report.PID) + ")"
		}
		lines = append(lines, renderStatusLine("notesmithd", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("notesmithd", statusWarn, "Not running", colorize))
	}
	lines = append(lines, renderStatusLine("Store", statusInfo, report.StoreDriver+" "+report.StoreLocation, colorize))
	lines = append(lines, renderStatusLine("Language", statusInfo, report.Language, colorize))
	if report.Notifications {
		lines = append(lines, renderStatusLine("Notifications", statusOK, "ntfy", colorize))
	} else {
		lines = append(lines, renderStatusLine("Notifications", statusInfo, "Disabled", colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize))
	lines = append(lines, checkLines(report.Checks, colorize)...)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Jobs", colorize))
	rows := make([][]string, 0, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		rows = append(rows, []string{string(status), strconv.Itoa(report.QueueStats[string(status)])})
	}
	table := renderTable([]column{{header: "Status"}, {header: "Count", align: alignRight}}, rows)
	return strings.Join(lines, "\n") + "\n" + table
}

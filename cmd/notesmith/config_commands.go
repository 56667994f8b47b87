package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"notesmith/internal/config"
	"notesmith/internal/language"
	"notesmith/internal/notifications"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set llm.api_key (or export LLM_API_KEY) and the transcription endpoint before running notesmith.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	if target := strings.TrimSpace(flagValue); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

type configSummary struct {
	Path     string            `json:"path"`
	Exists   bool              `json:"exists"`
	Settings map[string]string `json:"settings"`
}

// summaryKeys fixes the table order.
var summaryKeys = []string{
	"store", "api.bind", "api.auth", "transcription.base_url", "transcription.language",
	"llm.model", "llm.api_key", "workflow.workers", "notifications",
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration and print the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(strings.TrimSpace(ctx.configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			summary := configSummary{Path: path, Exists: exists, Settings: effectiveSettings(cfg)}
			return ctx.emit(cmd, summary, func() string { return renderConfigSummary(summary) })
		},
	}
}

func effectiveSettings(cfg *config.Config) map[string]string {
	auth := "none"
	switch {
	case cfg.API.Token != "" && cfg.API.JWTSecret != "":
		auth = "token + jwt"
	case cfg.API.Token != "":
		auth = "token"
	case cfg.API.JWTSecret != "":
		auth = "jwt"
	}
	llmKey := "missing"
	if cfg.LLM.APIKey != "" {
		llmKey = "set"
	}
	notify := "disabled"
	if notifications.Enabled(notifications.NewService(cfg)) {
		notify = cfg.Notifications.NtfyTopic
	}
	return map[string]string{
		"store":                  cfg.Store.Driver,
		"api.bind":               cfg.API.Bind,
		"api.auth":               auth,
		"transcription.base_url": cfg.Transcription.BaseURL,
		"transcription.language": language.DisplayName(cfg.Transcription.Language),
		"llm.model":              cfg.LLM.Model,
		"llm.api_key":            llmKey,
		"workflow.workers":       strconv.Itoa(cfg.Workflow.Workers),
		"notifications":          notify,
	}
}

func renderConfigSummary(summary configSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config path: %s\n", summary.Path)
	if !summary.Exists {
		b.WriteString("Config file did not exist; defaults were used\n")
	}
	rows := make([][]string, 0, len(summaryKeys))
	for _, key := range summaryKeys {
		rows = append(rows, []string{key, summary.Settings[key]})
	}
	b.WriteString(renderTable([]column{{header: "Setting"}, {header: "Value", maxWidth: 60}}, rows))
	b.WriteString("Configuration valid\n")
	return b.String()
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"notesmith/internal/daemon"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed API bearer token from api.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			now := time.Now()
			token, err := daemon.IssueToken(cfg.API.JWTSecret, subject, ttl, now)
			if err != nil {
				return err
			}
			payload := map[string]string{
				"token":     token,
				"subject":   subject,
				"expiresAt": now.Add(ttl).UTC().Format(time.RFC3339),
			}
			return ctx.emit(cmd, payload, func() string { return fmt.Sprintln(token) })
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "notesmith-cli", "Token subject claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

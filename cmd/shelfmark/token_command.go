package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shelfmark/internal/daemon"
)

type tokenOutput struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}
	tokenCmd.AddCommand(newTokenMintCommand(ctx))
	return tokenCmd
}

func newTokenMintCommand(ctx *commandContext) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			tokens := daemon.NewTokenService(cfg.Server.JWTSecret, cfg.TokenTTL())
			token, expires, err := tokens.Mint(userID)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, tokenOutput{Token: token, UserID: userID, ExpiresAt: expires})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "Expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	addUserFlag(cmd, &userID)
	return cmd
}

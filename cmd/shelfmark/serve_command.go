package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shelfmark/internal/daemon"
	"shelfmark/internal/database"
	"shelfmark/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var ensureCatalog bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, ctx, ensureCatalog)
		},
	}
	cmd.Flags().BoolVar(&ensureCatalog, "ensure-catalog", false, "Create the catalog tables when they are missing")
	return cmd
}

func runServer(cmd *cobra.Command, ctx *commandContext, ensureCatalog bool) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	db, err := database.Open(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open database", logging.Error(err))
		return err
	}
	if ensureCatalog {
		if err := db.EnsureCatalogSchema(signalCtx); err != nil {
			_ = db.Close()
			return err
		}
	}

	d, err := daemon.New(cfg, db, logger)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", d.Address())

	<-signalCtx.Done()
	logger.Info("shelfmark shutting down")
	d.Stop()
	return nil
}

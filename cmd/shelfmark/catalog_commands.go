package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/database"
	"shelfmark/internal/services"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect or create the shared book catalog",
	}
	catalogCmd.AddCommand(newCatalogInitCommand(ctx))
	catalogCmd.AddCommand(newCatalogStatusCommand(ctx))
	return catalogCmd
}

func newCatalogInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the catalog and library tables when they are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(_ *config.Config, db *database.DB, _ *slog.Logger) error {
				if err := db.EnsureCatalogSchema(cmd.Context()); err != nil {
					return err
				}
				tables := db.Tables()
				fmt.Fprintf(cmd.OutOrStdout(), "Catalog ready: %s, %s, %s\n", tables.Books, tables.UserBooks, tables.Pending)
				return nil
			})
		},
	}
}

type catalogStatus struct {
	Database string `json:"database"`
	Driver   string `json:"driver"`
	Ready    bool   `json:"ready"`
	Detail   string `json:"detail,omitempty"`
	Books    int64  `json:"books"`
	Links    int64  `json:"links"`
}

func newCatalogStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the catalog is reachable and how large it is",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(cfg *config.Config, db *database.DB, logger *slog.Logger) error {
				store := catalog.New(db, cfg.Matching, logger)
				status := catalogStatus{Database: db.Address(), Driver: db.Driver()}
				if err := store.Ready(cmd.Context()); err != nil {
					status.Detail = services.PublicMessage(err, true)
				} else {
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					status.Ready = true
					status.Books = stats.Books
					status.Links = stats.Links
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s (%s)\n", status.Database, status.Driver)
				fmt.Fprintf(out, "Catalog ready: %s\n", yesNo(status.Ready))
				if status.Ready {
					fmt.Fprintf(out, "Books: %d\nLibrary entries: %d\n", status.Books, status.Links)
				} else if status.Detail != "" {
					fmt.Fprintf(out, "Detail: %s\n", status.Detail)
				}
				return nil
			})
		},
	}
}

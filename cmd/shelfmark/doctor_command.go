package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shelfmark/internal/api"
	"shelfmark/internal/database"
	"shelfmark/internal/logging"
	"shelfmark/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var online bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, tables, credentials, and upstream services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			opts := preflight.Options{Online: online, Providers: api.BuildProviders(cfg, logger)}
			db, openErr := database.Open(cmd.Context(), cfg, logger)
			if openErr == nil {
				defer db.Close()
				opts.DB = db
			}

			results := preflight.RunAll(cmd.Context(), cfg, opts)
			if openErr != nil {
				results = append([]preflight.Result{{Name: "Database", Detail: openErr.Error()}}, results...)
			}
			return reportChecks(cmd, ctx, results)
		},
	}
	cmd.Flags().BoolVar(&online, "online", false, "Also call the extraction model and metadata providers")
	return cmd
}

var errChecksFailed = errors.New("one or more checks failed")

func reportChecks(cmd *cobra.Command, ctx *commandContext, results []preflight.Result) error {
	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	if ctx.jsonOutput() {
		if err := writeJSON(cmd, results); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{r.Name, yesNo(r.Passed), r.Detail})
		}
		writeRows(cmd, []string{"Check", "OK", "Detail"}, rows, nil)
	}
	if failed > 0 {
		if logger, err := ctx.ensureLogger(); err == nil {
			logging.WarnWithContext(logger, "preflight checks failed", "preflight_failed",
				logging.Int("failed", failed),
				logging.String(logging.FieldErrorHint, "run 'shelfmark doctor' and fix the failing checks"),
			)
		}
		return fmt.Errorf("%w (%d of %d)", errChecksFailed, failed, len(results))
	}
	return nil
}

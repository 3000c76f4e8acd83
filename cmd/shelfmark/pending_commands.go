package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shelfmark/internal/api"
	"shelfmark/internal/queue"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Review a user's confirmation queue",
	}
	pendingCmd.AddCommand(newPendingListCommand(ctx))
	pendingCmd.AddCommand(newPendingEditCommand(ctx))
	pendingCmd.AddCommand(newPendingDiscardCommand(ctx))
	return pendingCmd
}

func newPendingListCommand(ctx *commandContext) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending rows, marking those already on the shelf",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			return ctx.withService(cmd.Context(), func(svc *api.Service) error {
				rows, err := svc.ListPending(cmd.Context(), userID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, rows)
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := make([][]string, 0, len(rows))
				for _, row := range rows {
					table = append(table, []string{
						strconv.FormatInt(row.ID, 10),
						row.Title,
						row.Author,
						formatYear(row.Year),
						string(row.InputType),
						yesNo(row.InShelf),
					})
				}
				writeRows(cmd, []string{"ID", "Title", "Author", "Year", "Input", "On shelf"}, table,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft})
				return nil
			})
		},
	}
	addUserFlag(cmd, &userID)
	return cmd
}

func newPendingEditCommand(ctx *commandContext) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "edit <id> <field> <value>",
		Short: "Edit the title, author, year, or isbn of a pending row",
		Long: `Edit one field of a pending row.

Changing the title or author recomputes the row's identity. When another
pending row already has that identity the two rows are merged and the
surviving row is printed. An empty year value clears the year.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			rowID, err := parseRowID(args[0])
			if err != nil {
				return err
			}
			field, ok := queue.ParseField(args[1])
			if !ok {
				return fmt.Errorf("unknown field %q (want title, author, year, or isbn)", args[1])
			}
			return ctx.withService(cmd.Context(), func(svc *api.Service) error {
				result, err := svc.UpdatePendingField(cmd.Context(), userID, rowID, field, args[2])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if result.MergedInto > 0 {
					fmt.Fprintf(out, "Row %d merged into row %d\n", rowID, result.MergedInto)
				}
				row := result.Row
				fmt.Fprintf(out, "Row %d: %s by %s (%s)\n", row.ID, row.Title, row.Author, formatYear(row.Year))
				return nil
			})
		},
	}
	addUserFlag(cmd, &userID)
	return cmd
}

func newPendingDiscardCommand(ctx *commandContext) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "discard <id>",
		Short: "Drop a pending row without adding it to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			rowID, err := parseRowID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd.Context(), func(svc *api.Service) error {
				row, err := svc.Discard(cmd.Context(), userID, rowID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, row)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Discarded row %d: %s by %s\n", row.ID, row.Title, row.Author)
				return nil
			})
		},
	}
	addUserFlag(cmd, &userID)
	return cmd
}

func parseRowID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid row id %q", value)
	}
	return id, nil
}

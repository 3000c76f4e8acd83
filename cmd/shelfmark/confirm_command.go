package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shelfmark/internal/api"
	"shelfmark/internal/confirm"
)

func newConfirmCommand(ctx *commandContext) *cobra.Command {
	var (
		userID int64
		all    bool
		title  string
		author string
		year   int
		isbn   string
	)

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Add approved books to a user's library",
		Long: `Add approved books to a user's library.

Use --all to confirm every pending row in queue order, or --title and
--author to confirm a single book. Pending rows for the same book are
cleared either way.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(userID); err != nil {
				return err
			}
			if !all && (title == "" || author == "") {
				return errors.New("pass --all or both --title and --author")
			}
			return ctx.withService(cmd.Context(), func(svc *api.Service) error {
				var (
					result confirm.Result
					err    error
				)
				if all {
					result, err = svc.ConfirmAll(cmd.Context(), userID)
				} else {
					item := confirm.Item{Title: title, Author: author, ISBN: isbn}
					if cmd.Flags().Changed("year") {
						item.Year = &year
					}
					result, err = svc.Confirm(cmd.Context(), userID, []confirm.Item{item})
				}
				if err != nil {
					return err
				}
				return printConfirmResult(cmd, ctx, result)
			})
		},
	}

	addUserFlag(cmd, &userID)
	cmd.Flags().BoolVar(&all, "all", false, "Confirm every pending row")
	cmd.Flags().StringVar(&title, "title", "", "Title to confirm")
	cmd.Flags().StringVar(&author, "author", "", "Author to confirm")
	cmd.Flags().IntVar(&year, "year", 0, "Publication year, used only when the catalog has none")
	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN stored when the book is new to the catalog")
	cmd.MarkFlagsMutuallyExclusive("all", "title")
	cmd.MarkFlagsMutuallyExclusive("all", "author")
	return cmd
}

func printConfirmResult(cmd *cobra.Command, ctx *commandContext, result confirm.Result) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Confirmed %d, errors %d\n", result.Confirmed, result.Errors)
	if len(result.Details) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(result.Details))
	for _, d := range result.Details {
		book := "-"
		if d.BookID > 0 {
			book = strconv.FormatInt(d.BookID, 10)
		}
		status := string(d.Method)
		if d.Created {
			status = "created"
		}
		if !d.OK() {
			status = "error: " + d.Error
		}
		rows = append(rows, []string{d.Title, d.Author, book, status, strconv.FormatInt(d.Cleared, 10)})
	}
	writeRows(cmd, []string{"Title", "Author", "Book", "Result", "Cleared"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight})
	return nil
}

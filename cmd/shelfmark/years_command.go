package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"shelfmark/internal/api"
)

type yearLine struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   *int   `json:"year"`
}

func newYearsCommand(ctx *commandContext) *cobra.Command {
	var (
		books []string
		file  string
	)

	cmd := &cobra.Command{
		Use:   "years",
		Short: "Look up first-publication years",
		Long: `Look up first-publication years through the configured providers.

Each --book value is "title|author". --file takes a YAML or JSON list of
objects with title and author keys. Books without a confident match print
no year.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := collectRefs(books, file)
			if err != nil {
				return err
			}
			return ctx.withService(cmd.Context(), func(svc *api.Service) error {
				years := svc.LookupYears(cmd.Context(), refs)
				lines := make([]yearLine, len(refs))
				for i, ref := range refs {
					lines[i] = yearLine{Title: ref.Title, Author: ref.Author, Year: years[i]}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, lines)
				}
				rows := make([][]string, 0, len(lines))
				for _, line := range lines {
					rows = append(rows, []string{line.Title, line.Author, formatYear(line.Year)})
				}
				writeRows(cmd, []string{"Title", "Author", "Year"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight})
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&books, "book", "b", nil, `Book as "title|author" (repeatable)`)
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON list of title/author objects")
	return cmd
}

func collectRefs(books []string, file string) ([]api.ItemRef, error) {
	refs := make([]api.ItemRef, 0, len(books))
	for _, value := range books {
		title, author, ok := strings.Cut(value, "|")
		if !ok {
			return nil, fmt.Errorf("invalid --book %q (want title|author)", value)
		}
		refs = append(refs, api.ItemRef{Title: strings.TrimSpace(title), Author: strings.TrimSpace(author)})
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read books: %w", err)
		}
		var fromFile []api.ItemRef
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("parse books %s: %w", file, err)
		}
		refs = append(refs, fromFile...)
	}
	if len(refs) == 0 {
		return nil, errors.New("pass at least one --book or a --file")
	}
	return refs, nil
}

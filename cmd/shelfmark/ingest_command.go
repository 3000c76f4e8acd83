package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"shelfmark/internal/api"
	"shelfmark/internal/extraction"
	"shelfmark/internal/queue"
)

type ingestOptions struct {
	userID    int64
	file      string
	text      string
	imagePath string
	audioPath string
	note      string
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Queue book mentions for review",
		Long: `Queue book mentions for a user's review.

Pass exactly one source: --file with already extracted candidates (YAML or
JSON), or --text, --image, or --audio to run extraction first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(opts.userID); err != nil {
				return err
			}
			return ctx.withService(cmd.Context(), func(svc *api.Service) error {
				result, err := runIngest(cmd, svc, opts)
				if err != nil {
					return err
				}
				return printIngestResult(cmd, ctx, result)
			})
		},
	}

	addUserFlag(cmd, &opts.userID)
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "YAML or JSON file of title/author candidates")
	cmd.Flags().StringVar(&opts.text, "text", "", "Free text that mentions books")
	cmd.Flags().StringVar(&opts.imagePath, "image", "", "Photo of a shelf or a cover")
	cmd.Flags().StringVar(&opts.audioPath, "audio", "", "Voice note that mentions books")
	cmd.Flags().StringVar(&opts.note, "note", "", "Source note stored with queued rows")
	cmd.MarkFlagsMutuallyExclusive("file", "text", "image", "audio")
	cmd.MarkFlagsOneRequired("file", "text", "image", "audio")
	return cmd
}

func runIngest(cmd *cobra.Command, svc *api.Service, opts ingestOptions) (api.IngestResult, error) {
	ctx := cmd.Context()
	switch {
	case opts.file != "":
		candidates, err := readCandidates(opts.file)
		if err != nil {
			return api.IngestResult{}, err
		}
		meta := queue.Meta{InputType: queue.InputText, SourceNote: opts.note}
		result, err := svc.Ingest(ctx, opts.userID, candidates, meta)
		return api.IngestResult{EnqueueResult: result}, err
	case opts.text != "":
		return svc.IngestInput(ctx, opts.userID, extraction.Request{Type: queue.InputText, Text: opts.text})
	case opts.imagePath != "":
		data, err := os.ReadFile(opts.imagePath)
		if err != nil {
			return api.IngestResult{}, fmt.Errorf("read image: %w", err)
		}
		return svc.IngestInput(ctx, opts.userID, extraction.Request{
			Type:  queue.InputImage,
			Image: &extraction.Image{Data: data},
		})
	case opts.audioPath != "":
		data, err := os.ReadFile(opts.audioPath)
		if err != nil {
			return api.IngestResult{}, fmt.Errorf("read audio: %w", err)
		}
		return svc.IngestInput(ctx, opts.userID, extraction.Request{
			Type:  queue.InputAudio,
			Audio: &extraction.Audio{Filename: filepath.Base(opts.audioPath), Data: data},
		})
	default:
		return api.IngestResult{}, errors.New("nothing to ingest")
	}
}

// candidateFile is the mapping form of a candidates file. A bare sequence of
// candidates is accepted too.
type candidateFile struct {
	Candidates []queue.Candidate `yaml:"candidates"`
}

// readCandidates parses a YAML document. JSON input works because JSON is a
// YAML subset.
func readCandidates(path string) ([]queue.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse candidates %s: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("candidates file %s is empty", path)
	}
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var list []queue.Candidate
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode candidates %s: %w", path, err)
		}
		return list, nil
	}
	var file candidateFile
	if err := root.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode candidates %s: %w", path, err)
	}
	return file.Candidates, nil
}

func printIngestResult(cmd *cobra.Command, ctx *commandContext, result api.IngestResult) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	if strings.TrimSpace(result.Transcript) != "" {
		fmt.Fprintf(out, "Transcript: %s\n", result.Transcript)
	}
	fmt.Fprintf(out, "Queued %d, skipped %d\n", result.Queued, result.Skipped)
	if len(result.Items) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(result.Items))
	for _, item := range result.Items {
		id := "-"
		if item.ID > 0 {
			id = strconv.FormatInt(item.ID, 10)
		}
		rows = append(rows, []string{id, item.Title, item.Author, formatYear(item.Year), yesNo(item.InShelf)})
	}
	writeRows(cmd, []string{"ID", "Title", "Author", "Year", "On shelf"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft})
	return nil
}

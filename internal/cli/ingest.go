package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/katakuxiko/luminarag/internal/model"
	"github.com/katakuxiko/luminarag/internal/service"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Index PDF files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var resetCmd = &cobra.Command{
	Use:   "reset FILE...",
	Short: "Remove the chunks of the named files from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(resetCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	docs := make([]model.Document, 0, len(args))
	for _, path := range args {
		doc, err := readDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	results, err := application.Ingestor.IngestBatch(cmd.Context(), application.Sessions.Create(), docs)
	for _, r := range results {
		printIngestResult(cmd, r)
	}
	if err != nil {
		return err
	}
	for _, r := range results {
		if !r.OK() {
			return fmt.Errorf("%s: ingestion failed", r.FileName)
		}
	}
	return nil
}

func readDocument(path string) (model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return model.Document{Name: filepath.Base(path), Data: data, UploadedAt: time.Now()}, nil
}

func printIngestResult(cmd *cobra.Command, r model.IngestResult) {
	switch r.Status {
	case model.StatusIndexed:
		cmd.Printf("%s: indexed (%d chunks)\n", r.FileName, r.Chunks)
	case model.StatusSkipped:
		cmd.Printf("%s: already processed\n", r.FileName)
	default:
		cmd.Printf("%s: failed [%s] %v\n", r.FileName, r.Kind, r.Err)
	}
}

func runReset(cmd *cobra.Command, args []string) error {
	for _, name := range args {
		name = filepath.Base(name)
		if err := application.Index.RemoveFile(cmd.Context(), name); err != nil {
			return fmt.Errorf("reset %s: %w", name, err)
		}
		cmd.Printf("%s: removed\n", name)
	}
	return nil
}

// ingestOne is shared by watch.
func ingestOne(cmd *cobra.Command, sess *service.Session, path string) {
	doc, err := readDocument(path)
	if err != nil {
		cmd.PrintErrln(err)
		return
	}
	res, err := application.Ingestor.Ingest(cmd.Context(), sess, doc)
	if err != nil {
		cmd.PrintErrln(err)
		return
	}
	printIngestResult(cmd, res)
}

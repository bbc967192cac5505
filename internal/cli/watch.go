package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/katakuxiko/luminarag/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Index PDF files as they appear in a directory",
	Long: `Indexes every PDF already in DIR, then keeps watching it and indexes
new PDF files until interrupted. A file name is indexed once per run.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	sess := application.Sessions.Create()
	return watchDir(cmd.Context(), args[0], func(path string) {
		ingestOne(cmd, sess, path)
	})
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// watchDir calls ingest for every PDF in dir, then for each PDF created or
// written there, until ctx is done. The watcher is registered before the
// initial scan so no file slips between the two.
func watchDir(ctx context.Context, dir string, ingest func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && isPDF(e.Name()) {
			ingest(filepath.Join(dir, e.Name()))
		}
	}

	log := logger.FromContext(ctx).With("dir", dir)
	log.Info("watching for PDF files")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isPDF(ev.Name) || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}
			log.Debug("file event", "file", ev.Name, "op", ev.Op.String())
			ingest(ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "err", err)
		}
	}
}

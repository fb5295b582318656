package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/filer/internal/dircache"
	"github.com/justyntemme/filer/internal/store"
)

var journalCmd = &cobra.Command{
	Use:   "journal [dir]",
	Short: "Print events recorded by watch --journal (default: the last watched directory)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournal,
}

var (
	journalLimit int
	journalAll   bool
)

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 50, "Show at most this many recent events (0 for all)")
	journalCmd.Flags().BoolVar(&journalAll, "all", false, "Show events for every directory")
}

func runJournal(cmd *cobra.Command, args []string) error {
	path := cfg.JournalPath()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no journal at %s: %w", path, err)
	}

	db := store.NewDB()
	if err := db.Open(path); err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer db.Close()
	go db.Start()
	defer close(db.RequestChan)

	var dir string
	if !journalAll {
		if len(args) == 0 {
			db.RequestChan <- store.Request{Op: store.FetchSettings}
			dir = (<-db.ResponseChan).Settings[lastWatchedKey]
		}
		if dir == "" {
			d, err := dirArg(args)
			if err != nil {
				return err
			}
			dir = dircache.Normalize(d)
		}
	}

	db.RequestChan <- store.Request{Op: store.FetchEvents, Dir: dir, Limit: journalLimit}
	resp := <-db.ResponseChan
	if resp.Err != nil {
		return fmt.Errorf("failed to read journal: %w", resp.Err)
	}

	w := cmd.OutOrStdout()
	for _, ev := range resp.Events {
		fmt.Fprintf(w, "%s  %-8.8s  %-6s %s\n",
			ev.Time.Format(time.DateTime), ev.Session, ev.Kind, filepath.Join(ev.Dir, ev.Name))
	}
	fmt.Fprintf(w, "%s events\n", humanize.Comma(int64(len(resp.Events))))
	return nil
}

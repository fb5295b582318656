package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/justyntemme/filer/internal/dircache"
	"github.com/justyntemme/filer/internal/view"
)

var lsCmd = &cobra.Command{
	Use:   "ls [dir]",
	Short: "List a directory once every entry has been statted",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

var (
	lsAll     bool
	lsLong    bool
	lsSort    string
	lsReverse bool
	lsMatch   string
)

func init() {
	lsCmd.Flags().BoolVarP(&lsAll, "all", "a", false, "Show dotfiles")
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "Show mode, size and modification time")
	lsCmd.Flags().StringVarP(&lsSort, "sort", "s", "", "Sort by name, date, type or size (default from config)")
	lsCmd.Flags().BoolVarP(&lsReverse, "reverse", "r", false, "Reverse the sort order")
	lsCmd.Flags().StringVarP(&lsMatch, "match", "m", "", `Only show entries matching a filter, e.g. "ext:go size:>10KB"`)
}

func runLs(cmd *cobra.Command, args []string) error {
	dir, err := dirArg(args)
	if err != nil {
		return err
	}

	s, err := newSessionFromConfig(cfg, false, nil)
	if err != nil {
		return err
	}
	defer s.close()

	m := newModel(cfg.Get(), lsAll, lsSort, lsReverse)
	if lsMatch != "" {
		m.SetFilter(view.ParseFilter(lsMatch, time.Now()))
	}
	snap, err := listOnce(cmd.Context(), s, dir, m)
	if err != nil {
		return err
	}
	if snap.Error != "" {
		return fmt.Errorf("%s: %s", dir, snap.Error)
	}

	printListing(cmd.OutOrStdout(), snap, lsLong, time.Now())
	return nil
}

// listOnce attaches m to dir and runs the loop until the first scan ends.
func listOnce(ctx context.Context, s *session, dir string, m *view.Model) (view.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.OnChange = func(kind dircache.Event) {
		if kind == dircache.EventEndScan {
			cancel()
		}
	}

	var d *dircache.Directory
	s.loop.Post(func() {
		d = s.cache.Lookup(dir)
		d.Attach(m)
	})
	if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return view.Snapshot{}, err
	}
	if d != nil {
		d.Detach(m)
	}
	return m.Snapshot(), nil
}

func printListing(w io.Writer, snap view.Snapshot, long bool, now time.Time) {
	for _, it := range snap.Rows {
		if long {
			fmt.Fprintln(w, view.FormatRow(it, now))
		} else if it.IsDir() {
			fmt.Fprintln(w, it.Name+"/")
		} else {
			fmt.Fprintln(w, it.Name)
		}
	}
	if long {
		fmt.Fprintln(w, view.FormatSummary(snap))
	}
}

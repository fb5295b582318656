package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/justyntemme/filer/internal/dircache"
	"github.com/justyntemme/filer/internal/diritem"
	"github.com/justyntemme/filer/internal/store"
	"github.com/justyntemme/filer/internal/view"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Print every change to a directory until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

// lastWatchedKey names the setting journal falls back to without a dir argument.
const lastWatchedKey = "lastWatched"

var (
	watchAll     bool
	watchJournal bool
)

func init() {
	watchCmd.Flags().BoolVarP(&watchAll, "all", "a", false, "Stat dotfiles too")
	watchCmd.Flags().BoolVar(&watchJournal, "journal", false, "Record events to the journal database")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := dirArg(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := newSessionFromConfig(cfg, true, func(path string) {
		log.Printf("filer: %s no longer exists", path)
		cancel()
	})
	if err != nil {
		return err
	}
	defer s.close()

	c := cfg.Get()
	listeners := []dircache.Listener{
		newModel(c, watchAll, "", false),
		&eventPrinter{out: cmd.OutOrStdout(), now: time.Now},
	}

	if watchJournal || c.Journal.Enabled {
		db := store.NewDB()
		if err := db.Open(cfg.JournalPath()); err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		done := make(chan struct{})
		go func() {
			db.Start()
			close(done)
		}()
		defer func() {
			close(db.RequestChan)
			<-done
			db.Close()
		}()
		db.RequestChan <- store.Request{Op: store.SaveSetting, Key: lastWatchedKey, Value: dircache.Normalize(dir)}
		<-db.ResponseChan
		listeners = append(listeners, store.NewRecorder(db))
	}

	var d *dircache.Directory
	s.loop.Post(func() {
		d = s.cache.Lookup(dir)
		for _, l := range listeners {
			d.Attach(l)
		}
	})
	err = s.loop.Run(ctx)
	if d != nil {
		for _, l := range listeners {
			d.Detach(l)
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// eventPrinter writes one line per entry event.
type eventPrinter struct {
	out io.Writer
	now func() time.Time
}

func (p *eventPrinter) DirChanged(d *dircache.Directory, kind dircache.Event, items []*diritem.Item) {
	now := p.now()
	ts := now.Format("15:04:05.000")

	switch kind {
	case dircache.EventAdd, dircache.EventUpdate:
		for _, it := range items {
			fmt.Fprintf(p.out, "%s %-6s %s\n", ts, kind, view.FormatRow(it, now))
		}
	case dircache.EventRemove:
		for _, it := range items {
			fmt.Fprintf(p.out, "%s %-6s %s\n", ts, kind, it.Name)
		}
	case dircache.EventStartScan, dircache.EventEndScan:
		fmt.Fprintf(p.out, "%s %s %s\n", ts, kind, d.Path())
	case dircache.EventErrorChanged:
		msg := d.Error()
		if msg == "" {
			msg = "error cleared"
		}
		fmt.Fprintf(p.out, "%s error  %s\n", ts, msg)
	}
}

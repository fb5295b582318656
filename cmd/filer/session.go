package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/justyntemme/filer/internal/config"
	"github.com/justyntemme/filer/internal/debug"
	"github.com/justyntemme/filer/internal/dircache"
	"github.com/justyntemme/filer/internal/fs"
	"github.com/justyntemme/filer/internal/loop"
	"github.com/justyntemme/filer/internal/view"
	"github.com/justyntemme/filer/internal/watcher"
)

// session wires one event loop, an optional change watcher and the cache.
// Everything except Post runs on the loop goroutine, or after Run returns.
type session struct {
	loop    *loop.Loop
	watcher *watcher.Watcher
	cache   *dircache.Cache
}

func newSession(c config.Config, rescanDelay, notifyDelay time.Duration, watch bool, closeMissing func(path string)) (*session, error) {
	s := &session{loop: loop.New()}

	opts := dircache.Options{
		Scheduler:   s.loop,
		FS:          fs.NewLocal(),
		RescanDelay: rescanDelay,
		NotifyDelay: notifyDelay,
		EvictUnused: c.Dir.EvictUnused,
	}
	if c.Dir.CloseWhenMissing {
		opts.CloseMissing = closeMissing
	}
	if watch && c.Dir.Watch {
		w, err := watcher.New(s.loop.Post)
		if err != nil {
			return nil, fmt.Errorf("failed to start watcher: %w", err)
		}
		s.watcher = w
		opts.Watcher = w
	}
	s.cache = dircache.New(opts)
	return s, nil
}

func newSessionFromConfig(m *config.Manager, watch bool, closeMissing func(path string)) (*session, error) {
	return newSession(m.Get(), m.RescanDelay(), m.NotifyDelay(), watch, closeMissing)
}

func (s *session) close() {
	s.cache.Close()
	if s.watcher != nil {
		s.watcher.Close()
	}
}

// newModel builds a view model with the configured filter and sort.
func newModel(c config.Config, showAll bool, sortBy string, reverse bool) *view.Model {
	m := view.NewModel(c.FileList.ShowDotfiles || showAll)
	if sortBy == "" {
		sortBy = c.FileList.DefaultSort
	}
	asc := c.FileList.SortAscending
	if reverse {
		asc = !asc
	}
	m.SetSort(view.ParseSortColumn(sortBy), asc)
	return m
}

// dirArg returns the directory named on the command line, or the working
// directory.
func dirArg(args []string) (string, error) {
	if len(args) > 0 {
		return filepath.Abs(args[0])
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	debug.Log(debug.CLI, "dirArg: defaulting to %s", wd)
	return wd, nil
}

// Package watcher turns fsnotify events into per-directory change callbacks
// delivered on the event loop.
package watcher

import (
	"errors"
	"io"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/justyntemme/filer/internal/debug"
)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("watcher: closed")

// Watcher watches directories for changes. Several subscribers may watch the
// same directory; the OS watch is removed when the last one closes.
type Watcher struct {
	fsw  *fsnotify.Watcher
	post func(func())

	mu       sync.Mutex
	watching map[string]*watch // Currently watched paths
	nextID   int
	closed   bool
	done     chan struct{}
}

type watch struct {
	subs    map[int]func()
	pending bool // A notification is queued and not yet delivered
}

// New creates a watcher. Callbacks are handed to post so they run on the
// loop goroutine; a nil post calls them from the watcher's own goroutine.
func New(post func(func())) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if post == nil {
		post = func(fn func()) { fn() }
	}

	w := &Watcher{
		fsw:      fsw,
		post:     post,
		watching: make(map[string]*watch),
		done:     make(chan struct{}),
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debug.Log(debug.WATCH, "fsnotify error: %v", err)
		}
	}
}

// handle maps an event to the watched directory it concerns. Attribute
// changes count: they alter what a stat returns.
func (w *Watcher) handle(event fsnotify.Event) {
	w.mu.Lock()

	dir := filepath.Dir(event.Name)
	wt := w.watching[dir]
	if wt == nil {
		// The watched directory itself changed or went away
		dir = event.Name
		wt = w.watching[dir]
	}
	if wt == nil {
		w.mu.Unlock()
		debug.Log(debug.WATCH, "Ignoring %s on unwatched %s", event.Op, event.Name)
		return
	}
	debug.Log(debug.WATCH, "Event: %s on %s (dir: %s)", event.Op, event.Name, dir)

	// Coalesce bursts: one delivery in flight per directory
	if wt.pending {
		w.mu.Unlock()
		return
	}
	wt.pending = true
	w.mu.Unlock()

	w.post(func() { w.deliver(dir, wt) })
}

func (w *Watcher) deliver(dir string, wt *watch) {
	w.mu.Lock()
	wt.pending = false
	if w.watching[dir] != wt {
		w.mu.Unlock()
		return
	}
	subs := make([]func(), 0, len(wt.subs))
	for _, fn := range wt.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Watch starts delivering onChange whenever path or one of its entries
// changes. Close the returned handle to stop.
func (w *Watcher) Watch(path string, onChange func()) (io.Closer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}

	wt := w.watching[path]
	if wt == nil {
		if err := w.fsw.Add(path); err != nil {
			return nil, err
		}
		wt = &watch{subs: make(map[int]func())}
		w.watching[path] = wt
		debug.Log(debug.WATCH, "Now watching directory: %s", path)
	}

	w.nextID++
	id := w.nextID
	wt.subs[id] = onChange
	return &subscription{w: w, path: path, id: id}, nil
}

func (w *Watcher) unwatch(path string, id int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wt := w.watching[path]
	if wt == nil {
		return
	}
	delete(wt.subs, id)
	if len(wt.subs) > 0 {
		return
	}

	if err := w.fsw.Remove(path); err != nil {
		// Path may already be gone
		debug.Log(debug.WATCH, "Error unwatching %s: %v", path, err)
	}
	delete(w.watching, path)
	debug.Log(debug.WATCH, "Stopped watching directory: %s", path)
}

// Watching returns the number of directories with an OS watch.
func (w *Watcher) Watching() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watching)
}

// Close shuts down the watcher. Outstanding handles become no-ops.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.watching = make(map[string]*watch)
	w.mu.Unlock()

	close(w.done)
	return w.fsw.Close()
}

type subscription struct {
	w    *Watcher
	path string
	id   int
	once sync.Once
}

func (s *subscription) Close() error {
	s.once.Do(func() { s.w.unwatch(s.path, s.id) })
	return nil
}

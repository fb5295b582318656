// Package dircache keeps an in-memory model of the directories being viewed
// and reconciles it against the filesystem as changes are detected.
//
// A Cache holds one Directory per absolute path. Attaching a Listener to a
// Directory starts a scan: names are listed first and delivered as blank
// entries, then each entry the listeners care about is re-statted from an
// idle task and delivered as an update. Watcher notifications trigger a
// debounced rescan that only reports what actually changed.
//
// Nothing in this package is safe for concurrent use. Every call, and every
// scheduler and watcher callback, must happen on the goroutine that runs
// the Scheduler.
package dircache

import (
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/justyntemme/filer/internal/debug"
	"github.com/justyntemme/filer/internal/diritem"
	"github.com/justyntemme/filer/internal/loop"
)

const (
	DefaultRescanDelay = 300 * time.Millisecond
	DefaultNotifyDelay = 1500 * time.Millisecond
)

// Options configures a Cache. Scheduler and FS are required.
type Options struct {
	Scheduler loop.Scheduler
	FS        Filesystem
	Watcher   Watcher // Optional; without it changes are only seen on Invalidate

	// RescanDelay is the quiet period after a change notification before
	// the directory is rescanned.
	RescanDelay time.Duration
	// NotifyDelay is how long update and removal notifications found by
	// the recheck task are held back so they can be delivered together.
	NotifyDelay time.Duration

	// CloseMissing, when set, is called from an idle task instead of
	// recording an error when a scanned directory cannot be statted.
	CloseMissing func(path string)

	// EvictUnused drops a Directory from the cache when its last listener
	// detaches. By default directories are kept for the cache's lifetime.
	EvictUnused bool
}

// Cache owns every Directory. Create one with New and release it with Close.
type Cache struct {
	opts Options
	dirs map[string]*Directory

	// Notification nesting depth across all directories
	depth   int
	pending []pendingDetach

	// Directories that queued rechecks mid-dispatch
	rearm []*Directory

	closed bool
}

type pendingDetach struct {
	dir *Directory
	l   Listener
}

// New creates an empty cache.
func New(opts Options) *Cache {
	if opts.Scheduler == nil || opts.FS == nil {
		panic("dircache: Options.Scheduler and Options.FS are required")
	}
	if opts.RescanDelay <= 0 {
		opts.RescanDelay = DefaultRescanDelay
	}
	if opts.NotifyDelay <= 0 {
		opts.NotifyDelay = DefaultNotifyDelay
	}
	return &Cache{
		opts: opts,
		dirs: make(map[string]*Directory),
	}
}

// Normalize returns the absolute, cleaned form of path used as cache key.
func Normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Lookup returns the Directory for path, creating it if needed. A new
// Directory is not scanned until a listener attaches.
func (c *Cache) Lookup(path string) *Directory {
	path = Normalize(path)
	if d, ok := c.dirs[path]; ok {
		return d
	}
	d := newDirectory(c, path)
	c.dirs[path] = d
	debug.Log(debug.DIR, "Lookup: created %s (%d cached)", path, len(c.dirs))
	return d
}

// Peek returns the cached Directory for path, or nil. It never creates one.
func (c *Cache) Peek(path string) *Directory {
	return c.dirs[Normalize(path)]
}

// Len returns the number of cached directories.
func (c *Cache) Len() int { return len(c.dirs) }

// Paths returns the cached directory paths, sorted.
func (c *Cache) Paths() []string {
	paths := make([]string, 0, len(c.dirs))
	for p := range c.dirs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Invalidate forces a rescan of path if it is cached: immediately when it
// is idle, otherwise as soon as the current scan finishes.
func (c *Cache) Invalidate(path string) {
	d := c.Peek(path)
	if d == nil {
		return
	}
	debug.Log(debug.DIR, "Invalidate: %s", d.path)
	d.Update(d.path)
}

// CheckPath re-stats a single entry of a cached directory. Any change is
// delivered with the next delayed flush.
func (c *Cache) CheckPath(path string) {
	path = Normalize(path)
	d := c.dirs[filepath.Dir(path)]
	if d == nil {
		return
	}
	debug.Log(debug.DIR, "CheckPath: %s", path)
	d.recheck(filepath.Base(path), true)
}

// ForceUpdatePath sends an update for one entry's current snapshot without
// re-statting it, for when something outside the cache changed how the
// entry should be drawn.
func (c *Cache) ForceUpdatePath(path string) {
	path = Normalize(path)
	d := c.dirs[filepath.Dir(path)]
	if d == nil {
		return
	}
	it := d.known[filepath.Base(path)]
	if it == nil {
		return
	}
	// Listeners must see the entry added before it is updated
	d.flush()
	d.emit(EventUpdate, []*diritem.Item{it})
}

// Close cancels all scheduled work, stops watching and forgets every
// directory. Listeners are dropped without further events.
func (c *Cache) Close() {
	if c.closed {
		return
	}
	c.closed = true
	for _, d := range c.dirs {
		d.shutdown()
	}
	c.dirs = make(map[string]*Directory)
	c.pending = nil
	c.rearm = nil
	debug.Log(debug.DIR, "Close: cache closed")
}

// rekey moves d to a new path. A different Directory already cached under
// that path is displaced.
func (c *Cache) rekey(d *Directory, path string) {
	if c.dirs[d.path] == d {
		delete(c.dirs, d.path)
	}
	if old, ok := c.dirs[path]; ok && old != d {
		debug.Log(debug.DIR, "rekey: displacing cached %s", path)
	}
	c.dirs[path] = d
}

func (c *Cache) evict(d *Directory) {
	if c.dirs[d.path] != d {
		return
	}
	delete(c.dirs, d.path)
	d.shutdown()
	debug.Log(debug.DIR, "evict: dropped %s (%d cached)", d.path, len(c.dirs))
}

func (c *Cache) isPending(d *Directory, l Listener) bool {
	for _, p := range c.pending {
		if p.dir == d && p.l == l {
			return true
		}
	}
	return false
}

// cancelPending drops one queued detach of l from d and reports whether
// there was one.
func (c *Cache) cancelPending(d *Directory, l Listener) bool {
	for i := len(c.pending) - 1; i >= 0; i-- {
		if p := c.pending[i]; p.dir == d && p.l == l {
			c.pending = slices.Delete(c.pending, i, i+1)
			return true
		}
	}
	return false
}

func (c *Cache) pendingCount(d *Directory, l Listener) int {
	n := 0
	for _, p := range c.pending {
		if p.dir == d && p.l == l {
			n++
		}
	}
	return n
}

// enter and leave bracket every listener call. Detaches requested while
// inside are applied when the outermost call returns.
func (c *Cache) enter() { c.depth++ }

func (c *Cache) leave() {
	c.depth--
	if c.depth > 0 {
		return
	}
	for len(c.pending) > 0 {
		p := c.pending[0]
		c.pending = c.pending[1:]
		p.dir.removeListener(p.l)
	}
	for len(c.rearm) > 0 {
		d := c.rearm[0]
		c.rearm = c.rearm[1:]
		if c.dirs[d.path] == d && d.idleTask == 0 && len(d.queue) > 0 && len(d.listeners) > 0 {
			d.schedule()
		}
	}
}

package dircache

import (
	"io"
	"slices"

	"github.com/justyntemme/filer/internal/debug"
	"github.com/justyntemme/filer/internal/diritem"
	"github.com/justyntemme/filer/internal/loop"
)

// Directory is the cached state of one directory.
type Directory struct {
	cache *Cache
	path  string

	known map[string]*diritem.Item

	// Pending notifications, flushed together
	added   batch
	updated batch
	removed batch

	// Names waiting for a re-stat, and names that may still be queued
	// during the current pass
	queue      []string
	wantsQueue map[string]bool

	scanning    bool
	needsUpdate bool
	haveScanned bool
	info        diritem.DirInfo
	err         string
	endScans    int

	rescanTimer loop.Handle
	idleTask    loop.Handle
	notifyTimer loop.Handle
	closeTask   loop.Handle

	listeners []Listener
	watch     io.Closer
}

func newDirectory(c *Cache, path string) *Directory {
	return &Directory{
		cache:       c,
		path:        path,
		known:       make(map[string]*diritem.Item),
		wantsQueue:  make(map[string]bool),
		needsUpdate: true,
	}
}

// Path returns the directory's absolute path.
func (d *Directory) Path() string { return d.path }

// Error returns the message describing why the last scan failed, or "".
func (d *Directory) Error() string { return d.err }

// Scanning reports whether a scan is in progress.
func (d *Directory) Scanning() bool { return d.scanning }

// HaveScanned reports whether at least one scan has completed.
func (d *Directory) HaveScanned() bool { return d.haveScanned }

// NeedsUpdate reports whether a rescan is owed.
func (d *Directory) NeedsUpdate() bool { return d.needsUpdate }

// Len returns the number of known entries.
func (d *Directory) Len() int { return len(d.known) }

// Item returns the current snapshot of leaf, or nil.
func (d *Directory) Item(leaf string) *diritem.Item { return d.known[leaf] }

// Items returns every known entry, sorted by name.
func (d *Directory) Items() []*diritem.Item {
	items := make([]*diritem.Item, 0, len(d.known))
	for _, it := range d.known {
		items = append(items, it)
	}
	diritem.SortByName(items)
	return items
}

// Names returns the known leaf names, sorted.
func (d *Directory) Names() []string {
	return diritem.Names(d.Items())
}

// Listeners returns the number of attached listeners.
func (d *Directory) Listeners() int { return len(d.listeners) }

// QueueLen returns the number of entries waiting to be re-statted.
func (d *Directory) QueueLen() int { return len(d.queue) }

// Attach registers l. Before returning, l receives the known entries as one
// EventAdd (unless there are none) and EventQueueInteresting, or the events
// of a fresh scan if one is owed. It receives EventEndScan if no scan is
// running afterwards.
func (d *Directory) Attach(l Listener) {
	if d.cache.cancelPending(d, l) {
		// Detached and attached again within one dispatch: l keeps its slot
		debug.Log(debug.DIR, "Attach: %s cancelled a pending detach", d.path)
	} else {
		if len(d.listeners) == 0 {
			d.startWatch()
		}
		d.listeners = append(d.listeners, l)
	}
	debug.Log(debug.DIR, "Attach: %s now has %d listeners", d.path, len(d.listeners))

	if len(d.known) > 0 {
		d.emitTo(l, EventAdd, d.Items())
	}

	ends := d.endScans
	if d.needsUpdate && !d.scanning {
		d.rescan()
	} else {
		d.emitTo(l, EventQueueInteresting, nil)
		d.schedule()
	}

	if !d.scanning && d.endScans == ends {
		d.emitTo(l, EventEndScan, nil)
	}
}

// Detach unregisters l. It returns ErrNotAttached if l is not attached.
// Called from inside a notification, the removal is deferred until the
// notification returns.
func (d *Directory) Detach(l Listener) error {
	attached := 0
	for _, x := range d.listeners {
		if x == l {
			attached++
		}
	}
	if attached <= d.cache.pendingCount(d, l) {
		debug.Warn("dircache: Detach(%s): listener %T not attached", d.path, l)
		return ErrNotAttached
	}

	if d.cache.depth > 0 {
		debug.Log(debug.DIR, "Detach: %s deferred until dispatch returns", d.path)
		d.cache.pending = append(d.cache.pending, pendingDetach{dir: d, l: l})
		return nil
	}
	d.removeListener(l)
	return nil
}

func (d *Directory) removeListener(l Listener) {
	i := slices.Index(d.listeners, l)
	if i < 0 {
		return
	}
	d.listeners = slices.Delete(d.listeners, i, i+1)
	debug.Log(debug.DIR, "Detach: %s now has %d listeners", d.path, len(d.listeners))

	if len(d.listeners) > 0 {
		return
	}

	// Nobody is watching: pause the recheck and stop the watch. Changes
	// made while unwatched are picked up by a rescan on the next attach.
	d.cancelIdle()
	d.scanning = false
	d.stopWatch()
	d.needsUpdate = true

	if d.cache.opts.EvictUnused {
		d.cache.evict(d)
	}
}

// Update changes the directory's path and rescans it: now if idle,
// otherwise once the current scan finishes. With no listeners the rescan
// waits for the next Attach.
func (d *Directory) Update(path string) {
	path = Normalize(path)
	if path != d.path {
		debug.Log(debug.DIR, "Update: %s -> %s", d.path, path)
		d.cache.rekey(d, path)
		d.path = path
		if d.watch != nil {
			d.stopWatch()
			d.startWatch()
		}
	}

	if d.scanning || len(d.listeners) == 0 {
		// Unwatched directories rescan on the next attach
		d.needsUpdate = true
		return
	}
	d.rescan()
}

// UpdateItem re-stats leaf and delivers any change immediately. It returns
// the new snapshot, or nil if the entry no longer exists.
func (d *Directory) UpdateItem(leaf string) *diritem.Item {
	it := d.recheck(leaf, true)
	d.flush()
	return it
}

// QueueRecheck asks for leaf to be re-statted in the current pass. It only
// queues names listed by the last scan that are not queued yet, and reports
// whether leaf was queued.
func (d *Directory) QueueRecheck(leaf string) bool {
	if !d.wantsQueue[leaf] {
		return false
	}
	delete(d.wantsQueue, leaf)
	d.queue = append(d.queue, leaf)
	if d.cache.depth == 0 {
		d.schedule()
	} else {
		d.cache.rearm = append(d.cache.rearm, d)
	}
	return true
}

// QueueRecheckFunc queues every eligible entry for which want returns true,
// in name order, and returns how many were queued.
func (d *Directory) QueueRecheckFunc(want func(*diritem.Item) bool) int {
	n := 0
	for _, it := range d.Items() {
		if d.wantsQueue[it.Name] && want(it) && d.QueueRecheck(it.Name) {
			n++
		}
	}
	return n
}

func (d *Directory) startWatch() {
	w := d.cache.opts.Watcher
	if w == nil {
		return
	}
	h, err := w.Watch(d.path, d.changed)
	if err != nil {
		debug.Log(debug.WATCH, "startWatch: %s: %v", d.path, err)
		return
	}
	d.watch = h
}

func (d *Directory) stopWatch() {
	if d.watch == nil {
		return
	}
	if err := d.watch.Close(); err != nil {
		debug.Log(debug.WATCH, "stopWatch: %s: %v", d.path, err)
	}
	d.watch = nil
}

// emit delivers an event to every attached listener. The list is copied
// first so callbacks may attach or detach freely.
func (d *Directory) emit(kind Event, items []*diritem.Item) {
	if len(d.listeners) == 0 {
		return
	}
	debug.Log(debug.DIR, "emit: %s %s (%d items, %d listeners)", d.path, kind, len(items), len(d.listeners))

	listeners := slices.Clone(d.listeners)
	d.cache.enter()
	defer d.cache.leave()
	for _, l := range listeners {
		if d.cache.isPending(d, l) {
			continue
		}
		l.DirChanged(d, kind, items)
	}
}

func (d *Directory) emitTo(l Listener, kind Event, items []*diritem.Item) {
	d.cache.enter()
	defer d.cache.leave()
	if d.cache.isPending(d, l) {
		return
	}
	l.DirChanged(d, kind, items)
}

func (d *Directory) setScanning(scanning bool) {
	if d.scanning == scanning {
		return
	}
	d.scanning = scanning
	if scanning {
		d.emit(EventStartScan, nil)
		return
	}
	d.endScans++
	d.emit(EventEndScan, nil)
}

func (d *Directory) setError(msg string) {
	if msg == "" && d.err == "" {
		return
	}
	d.err = msg
	d.emit(EventErrorChanged, nil)
}

func (d *Directory) cancelIdle() {
	if d.idleTask != 0 {
		d.cache.opts.Scheduler.Cancel(d.idleTask)
		d.idleTask = 0
	}
}

func (d *Directory) shutdown() {
	s := d.cache.opts.Scheduler
	for _, h := range []*loop.Handle{&d.rescanTimer, &d.idleTask, &d.notifyTimer, &d.closeTask} {
		if *h != 0 {
			s.Cancel(*h)
			*h = 0
		}
	}
	d.stopWatch()
	d.listeners = nil
	d.scanning = false
	d.needsUpdate = true
}

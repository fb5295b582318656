package dircache

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"

	"github.com/justyntemme/filer/internal/debug"
	"github.com/justyntemme/filer/internal/diritem"
)

// rescan lists the directory, drops entries that are gone, adds blank
// entries for new names and asks the listeners which entries to re-stat.
func (d *Directory) rescan() {
	debug.Log(debug.SCAN, "rescan: %s", d.path)
	d.needsUpdate = false
	d.setError("")

	fs := d.cache.opts.FS
	fs.RefreshMounts()

	info, err := fs.StatDir(d.path)
	if err != nil {
		if hook := d.cache.opts.CloseMissing; hook != nil {
			path := d.path
			debug.Log(debug.SCAN, "rescan: %s missing, closing", path)
			if d.closeTask == 0 {
				d.closeTask = d.cache.opts.Scheduler.Idle(func() bool {
					d.closeTask = 0
					hook(path)
					return false
				})
			}
			return
		}
		d.setError(fmt.Sprintf("Can't stat directory: %s", reason(err)))
		d.removeAll()
		return
	}
	d.info = info

	names, err := fs.ReadNames(d.path)
	if err != nil {
		d.setError(fmt.Sprintf("Can't open directory: %s", reason(err)))
		return
	}

	d.setScanning(true)
	d.flush()

	d.sweep(names)

	d.queue = nil
	clear(d.wantsQueue)
	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}
		if _, ok := d.known[name]; !ok {
			it := diritem.New(name)
			d.known[name] = it
			d.added.put(it)
		}
		d.wantsQueue[name] = true
	}
	d.flush()

	d.emit(EventQueueInteresting, nil)
	debug.Log(debug.SCAN, "rescan: %s has %d entries, %d queued", d.path, len(d.known), len(d.queue))

	d.schedule()
}

// sweep evicts every known entry missing from names and reports them in one
// immediate EventRemove.
func (d *Directory) sweep(names []string) {
	listed := make(map[string]bool, len(names))
	for _, n := range names {
		listed[n] = true
	}

	var gone []*diritem.Item
	for name, it := range d.known {
		if !listed[name] {
			gone = append(gone, it)
		}
	}
	if len(gone) == 0 {
		return
	}

	diritem.SortByName(gone)
	for _, it := range gone {
		delete(d.known, it.Name)
		delete(d.wantsQueue, it.Name)
		d.added.drop(it.Name)
		d.updated.drop(it.Name)
	}
	debug.Log(debug.SCAN, "sweep: %s lost %d entries", d.path, len(gone))
	d.emit(EventRemove, gone)
}

func (d *Directory) removeAll() {
	d.sweep(nil)
	d.queue = nil
	clear(d.wantsQueue)
	d.added.reset()
	d.updated.reset()
	d.removed.reset()
}

// schedule arms the idle recheck task when there is work and someone to
// deliver it to. With an empty queue the scan is complete.
func (d *Directory) schedule() {
	switch {
	case len(d.queue) > 0 && len(d.listeners) > 0:
		d.setScanning(true)
		if d.idleTask == 0 {
			d.idleTask = d.cache.opts.Scheduler.Idle(d.recheckNext)
		}
	case len(d.queue) == 0:
		d.finishScan()
	default:
		d.cancelIdle()
		d.setScanning(false)
	}
}

// recheckNext is the idle task: it re-stats one queued entry per call.
func (d *Directory) recheckNext() bool {
	if len(d.listeners) == 0 {
		d.idleTask = 0
		d.setScanning(false)
		return false
	}

	if len(d.queue) > 0 {
		name := d.queue[0]
		d.queue = d.queue[1:]
		d.recheck(name, false)
	}
	if len(d.queue) > 0 {
		return true
	}

	d.idleTask = 0
	d.finishScan()
	return false
}

func (d *Directory) finishScan() {
	d.cancelIdle()
	d.flush()
	d.haveScanned = true
	d.setScanning(false)

	if d.needsUpdate && len(d.listeners) > 0 {
		debug.Log(debug.SCAN, "finishScan: %s changed during scan, rescanning", d.path)
		d.rescan()
	}
}

// recheck re-stats leaf and buffers the result. Unknown names are only
// considered when create is set. It returns the current snapshot, or nil
// if the entry does not exist.
func (d *Directory) recheck(leaf string, create bool) *diritem.Item {
	if leaf == "." || leaf == ".." {
		return nil
	}
	old, known := d.known[leaf]
	if !known && !create {
		return nil
	}
	delete(d.wantsQueue, leaf)

	it := d.cache.opts.FS.Restat(filepath.Join(d.path, leaf), leaf, d.info)
	debug.Log(debug.ITEM, "recheck: %s/%s -> %s", d.path, leaf, it.Type)

	if it.NotFound() {
		if known {
			delete(d.known, leaf)
			d.added.drop(leaf)
			d.updated.drop(leaf)
			d.removed.put(old)
			d.delayedNotify()
		}
		return nil
	}

	if known && old.Equal(it) {
		return old
	}

	d.known[leaf] = it
	switch {
	case !known && d.removed.drop(leaf):
		// Removal not yet delivered: listeners still show the old entry
		d.updated.put(it)
	case !known, d.added.has(leaf):
		d.added.put(it)
	default:
		d.updated.put(it)
	}
	d.delayedNotify()
	return it
}

// delayedNotify flushes the buffers after NotifyDelay unless a flush
// happens first.
func (d *Directory) delayedNotify() {
	if d.notifyTimer != 0 {
		return
	}
	d.notifyTimer = d.cache.opts.Scheduler.Timeout(d.cache.opts.NotifyDelay, func() bool {
		d.notifyTimer = 0
		d.flush()
		return false
	})
}

// flush delivers the buffered additions, updates and removals, in that
// order, to every listener.
func (d *Directory) flush() {
	if d.notifyTimer != 0 {
		d.cache.opts.Scheduler.Cancel(d.notifyTimer)
		d.notifyTimer = 0
	}

	added := d.added.take()
	updated := d.updated.take()
	removed := d.removed.take()

	if len(added) > 0 {
		d.emit(EventAdd, added)
	}
	if len(updated) > 0 {
		d.emit(EventUpdate, updated)
	}
	if len(removed) > 0 {
		d.emit(EventRemove, removed)
	}
}

// changed is the watcher callback. Each call restarts the quiet period.
func (d *Directory) changed() {
	if len(d.listeners) == 0 {
		return
	}
	debug.Log(debug.WATCH, "changed: %s", d.path)
	d.needsUpdate = true

	s := d.cache.opts.Scheduler
	if d.rescanTimer != 0 {
		s.Cancel(d.rescanTimer)
	}
	d.rescanTimer = s.Timeout(d.cache.opts.RescanDelay, d.rescanDue)
}

// rescanDue fires after the quiet period. While a scan is running it
// keeps waiting; the scan itself rescans on completion if needed.
func (d *Directory) rescanDue() bool {
	if len(d.listeners) == 0 {
		d.rescanTimer = 0
		return false
	}
	if d.scanning {
		return true
	}
	d.rescanTimer = 0
	if d.needsUpdate {
		d.rescan()
	}
	return false
}

// reason strips the operation and path from a filesystem error.
func reason(err error) string {
	var pe *iofs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}

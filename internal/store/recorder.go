package store

import (
	"time"

	"github.com/justyntemme/filer/internal/debug"
	"github.com/justyntemme/filer/internal/dircache"
	"github.com/justyntemme/filer/internal/diritem"
)

// Recorder is a dircache.Listener that journals every Add, Update and
// Remove batch. It never blocks the caller: when the request queue is full
// the batch is dropped and counted.
type Recorder struct {
	requests chan<- Request
	session  string
	now      func() time.Time

	// Dropped counts batches lost to a full queue.
	Dropped int
}

// NewRecorder returns a Recorder feeding db.
func NewRecorder(db *DB) *Recorder {
	return &Recorder{requests: db.RequestChan, session: db.Session, now: time.Now}
}

// DirChanged implements dircache.Listener.
func (r *Recorder) DirChanged(d *dircache.Directory, kind dircache.Event, items []*diritem.Item) {
	switch kind {
	case dircache.EventAdd, dircache.EventUpdate, dircache.EventRemove:
	default:
		return
	}
	if len(items) == 0 {
		return
	}

	at := r.now()
	events := make([]Event, len(items))
	for i, it := range items {
		events[i] = Event{Session: r.session, Dir: d.Path(), Kind: kind.String(), Name: it.Name, Time: at}
	}

	select {
	case r.requests <- Request{Op: RecordEvents, Events: events}:
	default:
		r.Dropped++
		debug.Warn("store: journal queue full, dropped %d %s events for %s", len(events), kind, d.Path())
	}
}

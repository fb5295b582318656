package dircache

import (
	"errors"
	"io"

	"github.com/justyntemme/filer/internal/diritem"
)

// ErrNotAttached is returned by Detach when the listener is not attached.
var ErrNotAttached = errors.New("dircache: listener not attached")

// Event is the kind of change delivered to a Listener.
type Event int

const (
	EventAdd              Event = iota // Items were added
	EventUpdate                        // Items changed
	EventRemove                        // Items are gone; the slice holds their last snapshots
	EventStartScan                     // A scan started
	EventEndScan                       // The scan finished
	EventErrorChanged                  // Directory.Error changed
	EventQueueInteresting              // Call QueueRecheck for every entry you need detail on
)

func (e Event) String() string {
	switch e {
	case EventAdd:
		return "add"
	case EventUpdate:
		return "update"
	case EventRemove:
		return "remove"
	case EventStartScan:
		return "start-scan"
	case EventEndScan:
		return "end-scan"
	case EventErrorChanged:
		return "error-changed"
	case EventQueueInteresting:
		return "queue-interesting"
	default:
		return "unknown"
	}
}

// Listener receives change notifications for a Directory.
//
// Listeners are identified by interface equality, so the value passed to
// Attach must be comparable; use a pointer. The items slice is only valid
// for the duration of the call and must not be modified.
//
// A listener may call Detach from inside DirChanged. The detach takes effect
// once the outermost notification returns, and no further events reach the
// listener in the meantime.
type Listener interface {
	DirChanged(d *Directory, kind Event, items []*diritem.Item)
}

// Filesystem lists and stats directory entries.
type Filesystem interface {
	StatDir(path string) (diritem.DirInfo, error)
	ReadNames(path string) ([]string, error)
	// Restat never fails: errors are returned as TypeError items.
	Restat(path, leaf string, parent diritem.DirInfo) *diritem.Item
	RefreshMounts()
}

// Watcher subscribes to change notifications for a directory. onChange must
// be called on the goroutine that owns the Cache.
type Watcher interface {
	Watch(path string, onChange func()) (io.Closer, error)
}

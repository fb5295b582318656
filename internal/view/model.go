// Package view holds the state of one directory listing as shown to a user.
package view

import (
	"cmp"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/justyntemme/filer/internal/debug"
	"github.com/justyntemme/filer/internal/dircache"
	"github.com/justyntemme/filer/internal/diritem"
)

// SortColumn selects the ordering of rows.
type SortColumn int

const (
	SortByName SortColumn = iota
	SortByDate
	SortByType
	SortBySize
)

// ParseSortColumn maps a config value ("name", "date", "type", "size") to a
// column. Unknown values sort by name.
func ParseSortColumn(s string) SortColumn {
	switch strings.ToLower(s) {
	case "date", "modified":
		return SortByDate
	case "type":
		return SortByType
	case "size":
		return SortBySize
	default:
		return SortByName
	}
}

func (c SortColumn) String() string {
	switch c {
	case SortByDate:
		return "date"
	case SortByType:
		return "type"
	case SortBySize:
		return "size"
	default:
		return "name"
	}
}

// Model is a dircache.Listener that keeps a filtered, sorted list of the
// entries of one directory.
//
// DirChanged runs on the loop goroutine. Snapshot may be called from any
// goroutine.
type Model struct {
	mu sync.RWMutex

	// Every entry reported by the cache, hidden ones included
	items map[string]*diritem.Item

	// What is displayed
	rows []*diritem.Item

	path     string
	scanning bool
	scanned  bool
	err      string

	showDotfiles bool
	filter       Filter
	sortColumn   SortColumn
	sortAsc      bool

	// OnChange is called after every event, outside the lock.
	OnChange func(kind dircache.Event)
}

// Snapshot is an immutable copy of a Model's state.
type Snapshot struct {
	Path     string
	Rows     []*diritem.Item
	Total    int // Entries including hidden and filtered ones
	Filter   string
	Scanning bool
	Scanned  bool // At least one scan has finished
	Error    string
}

// NewModel creates an empty model sorted by name, ascending.
func NewModel(showDotfiles bool) *Model {
	return &Model{
		items:        make(map[string]*diritem.Item),
		showDotfiles: showDotfiles,
		sortColumn:   SortByName,
		sortAsc:      true,
	}
}

// DirChanged implements dircache.Listener.
func (m *Model) DirChanged(d *dircache.Directory, kind dircache.Event, items []*diritem.Item) {
	m.mu.Lock()

	m.path = d.Path()
	switch kind {
	case dircache.EventAdd, dircache.EventUpdate:
		for _, it := range items {
			m.items[it.Name] = it
		}
		m.rebuildLocked()
	case dircache.EventRemove:
		for _, it := range items {
			delete(m.items, it.Name)
		}
		m.rebuildLocked()
	case dircache.EventStartScan:
		m.scanning = true
	case dircache.EventEndScan:
		m.scanning = false
		m.scanned = true
	case dircache.EventErrorChanged:
		m.err = d.Error()
	case dircache.EventQueueInteresting:
		n := d.QueueRecheckFunc(m.wantsLocked)
		debug.Log(debug.VIEW, "Model: queued %d of %d entries in %s", n, len(m.items), m.path)
	}

	debug.Log(debug.ITEM, "Model.DirChanged: %s %s (%d items)", m.path, kind, len(items))
	onChange := m.OnChange
	m.mu.Unlock()

	if onChange != nil {
		onChange(kind)
	}
}

// wantsLocked reports whether the entry will be displayed, and so needs
// its details.
func (m *Model) wantsLocked(it *diritem.Item) bool {
	return m.showDotfiles || !it.IsHidden()
}

// Snapshot returns the current state.
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]*diritem.Item, len(m.rows))
	copy(rows, m.rows)
	return Snapshot{
		Path:     m.path,
		Rows:     rows,
		Total:    len(m.items),
		Filter:   m.filter.Raw,
		Scanning: m.scanning,
		Scanned:  m.scanned,
		Error:    m.err,
	}
}

// Len returns the number of displayed rows.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// SetShowDotfiles toggles dotfile visibility. Hidden entries that were never
// statted stay blank until the directory is rescanned.
func (m *Model) SetShowDotfiles(show bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.showDotfiles = show
	m.rebuildLocked()
}

// SetFilter restricts the displayed rows to those matching f.
func (m *Model) SetFilter(f Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.filter = f
	m.rebuildLocked()
}

// SetSort changes sort settings and rebuilds.
func (m *Model) SetSort(column SortColumn, ascending bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sortColumn = column
	m.sortAsc = ascending
	m.rebuildLocked()
}

// --- Internal methods (must be called with lock held) ---

func (m *Model) rebuildLocked() {
	rows := make([]*diritem.Item, 0, len(m.items))
	for _, it := range m.items {
		if m.wantsLocked(it) && m.filter.Match(it) {
			rows = append(rows, it)
		}
	}
	m.sortLocked(rows)
	m.rows = rows
}

func (m *Model) sortLocked(rows []*diritem.Item) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		// Directories first
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		c := m.compareLocked(a, b)
		if !m.sortAsc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		// Equal keys fall back to ascending name order in both directions
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c < 0
		}
		return a.Name < b.Name
	})
}

func (m *Model) compareLocked(a, b *diritem.Item) int {
	switch m.sortColumn {
	case SortByDate:
		return a.Mtime.Compare(b.Mtime)
	case SortBySize:
		return cmp.Compare(a.Size, b.Size)
	case SortByType:
		return strings.Compare(strings.ToLower(filepath.Ext(a.Name)), strings.ToLower(filepath.Ext(b.Name)))
	default: // SortByName
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}

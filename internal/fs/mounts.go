package fs

import "sync"

// Mounts is the set of mount points on the host.
type Mounts struct {
	mu     sync.RWMutex
	points map[string]bool
}

// NewMounts returns an empty table. Call Refresh to load it.
func NewMounts() *Mounts {
	return &Mounts{points: make(map[string]bool)}
}

// Refresh reloads the table from the operating system.
func (m *Mounts) Refresh() {
	points := readMountPoints()
	m.mu.Lock()
	m.points = points
	m.mu.Unlock()
}

// Has reports whether path is a mount point.
func (m *Mounts) Has(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.points[path]
}

// Len returns the number of known mount points.
func (m *Mounts) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

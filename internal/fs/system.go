// Package fs is the local filesystem backend of the directory cache: it
// lists directory names, stats entries into diritem snapshots and keeps the
// mount table used to flag mount points.
package fs

import (
	"errors"
	iofs "io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/justyntemme/filer/internal/debug"
	"github.com/justyntemme/filer/internal/diritem"
)

// Local implements dircache.Filesystem on the host filesystem.
type Local struct {
	// SniffContent enables reading the start of files whose extension has
	// no registered MIME type.
	SniffContent bool

	mounts *Mounts
}

// NewLocal creates a Local with a freshly loaded mount table.
func NewLocal() *Local {
	l := &Local{SniffContent: true, mounts: NewMounts()}
	l.mounts.Refresh()
	return l
}

// RefreshMounts reloads the mount table. Called at the start of each rescan.
func (l *Local) RefreshMounts() {
	l.mounts.Refresh()
}

// ReadNames lists the leaf names of path in one pass, without statting.
// "." and ".." are never returned.
func (l *Local) ReadNames(path string) ([]string, error) {
	debug.Log(debug.SCAN, "ReadNames: reading %q", path)

	var names []string
	var mu sync.Mutex

	// Depth 1: children are reported but never descended into
	conf := &fastwalk.Config{
		Follow:   false,
		MaxDepth: 1,
	}

	err := fastwalk.Walk(conf, path, func(fullPath string, d iofs.DirEntry, err error) error {
		if fullPath == path {
			// Called once for the root and again if reading it fails
			return err
		}
		if err != nil {
			debug.Log(debug.ITEM, "ReadNames: walk error at %q: %v", fullPath, err)
			return nil
		}

		if name := d.Name(); name != "." && name != ".." {
			mu.Lock()
			names = append(names, name)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		debug.Log(debug.SCAN, "ReadNames: %q: %v", path, err)
		return nil, err
	}

	sort.Strings(names)
	debug.Log(debug.SCAN, "ReadNames: %q has %d names", path, len(names))
	return names, nil
}

// Restat stats one entry and returns its snapshot. Failures are returned as
// TypeError items, never as errors.
func (l *Local) Restat(path, leaf string, parent diritem.DirInfo) *diritem.Item {
	si, flags, err := statEntry(path)
	if err != nil {
		debug.Log(debug.ITEM, "Restat: %q: %v", path, err)
		return diritem.Failed(leaf, err)
	}
	return l.build(path, leaf, flags, si, parent)
}

// StatDir stats the directory itself.
func (l *Local) StatDir(path string) (diritem.DirInfo, error) {
	si, _, err := statEntry(path)
	if err != nil {
		return diritem.DirInfo{}, err
	}
	if !si.mode.IsDir() {
		return diritem.DirInfo{}, &iofs.PathError{Op: "stat", Path: path, Err: errNotDir}
	}
	return diritem.DirInfo{Dev: si.dev, Mode: si.mode, ModTime: si.mtime}, nil
}

var errNotDir = errors.New("not a directory")

// statInfo is the platform-neutral result of a stat call.
type statInfo struct {
	mode  iofs.FileMode
	size  int64
	uid   uint32
	gid   uint32
	dev   uint64
	atime time.Time
	ctime time.Time
	mtime time.Time
}

func (l *Local) build(path, leaf string, flags diritem.Flags, si statInfo, parent diritem.DirInfo) *diritem.Item {
	t := diritem.TypeFromMode(si.mode)

	switch t {
	case diritem.TypeDirectory:
		if !flags.Has(diritem.FlagSymlink) {
			if (parent.Dev != 0 && si.dev != parent.Dev) || l.mounts.Has(path) {
				flags |= diritem.FlagMountPoint
			}
		}
	case diritem.TypeRegular:
		if si.mode.Perm()&0o111 != 0 {
			flags |= diritem.FlagExecutable
		}
	}

	var mimeType string
	switch t {
	case diritem.TypeRegular:
		mimeType = MimeType(path, l.SniffContent)
	case diritem.TypeUnknown:
	default:
		mimeType = "inode/" + t.String()
	}

	return &diritem.Item{
		Name:     leaf,
		Type:     t,
		Flags:    flags,
		Size:     si.size,
		Mode:     si.mode,
		UID:      si.uid,
		GID:      si.gid,
		Atime:    si.atime,
		Ctime:    si.ctime,
		Mtime:    si.mtime,
		MimeType: mimeType,
		Icon:     diritem.IconName(t, flags, mimeType),
	}
}

// Join builds the full path of a leaf inside dir.
func Join(dir, leaf string) string {
	return filepath.Join(dir, leaf)
}

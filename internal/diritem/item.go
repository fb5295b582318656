// Package diritem describes a single directory entry as last seen on disk.
//
// An Item is a snapshot: once built it is never modified. Re-statting an
// entry produces a new Item and the owner swaps its pointer, so two snapshots
// of the same name can be compared with Equal to decide whether anything a
// view cares about has changed.
package diritem

import (
	"errors"
	"io/fs"
	"slices"
	"strings"
	"syscall"
	"time"
)

// Type is the base type of an entry.
type Type uint8

const (
	TypeUnknown Type = iota // Not yet statted
	TypeRegular
	TypeDirectory
	TypeSymlink // Symlink whose target could not be statted
	TypeSocket
	TypeFIFO
	TypeBlock
	TypeChar
	TypeError // Stat failed, see Item.Errno
)

func (t Type) String() string {
	switch t {
	case TypeRegular:
		return "file"
	case TypeDirectory:
		return "dir"
	case TypeSymlink:
		return "symlink"
	case TypeSocket:
		return "socket"
	case TypeFIFO:
		return "fifo"
	case TypeBlock:
		return "block"
	case TypeChar:
		return "char"
	case TypeError:
		return "error"
	default:
		return "unknown"
	}
}

// TypeFromMode derives the Type from an fs.FileMode.
func TypeFromMode(mode fs.FileMode) Type {
	switch {
	case mode.IsRegular():
		return TypeRegular
	case mode.IsDir():
		return TypeDirectory
	case mode&fs.ModeSymlink != 0:
		return TypeSymlink
	case mode&fs.ModeSocket != 0:
		return TypeSocket
	case mode&fs.ModeNamedPipe != 0:
		return TypeFIFO
	case mode&fs.ModeCharDevice != 0:
		return TypeChar
	case mode&fs.ModeDevice != 0:
		return TypeBlock
	default:
		return TypeUnknown
	}
}

// Flags are extra properties discovered while statting.
type Flags uint8

const (
	FlagSymlink    Flags = 1 << iota // The name is a symlink; other fields describe the target
	FlagExecutable                   // Regular file with an execute bit set
	FlagMountPoint                   // Directory on a different device from its parent
)

// Has reports whether all bits in f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// DirInfo is the part of the parent directory's stat used while statting
// its entries.
type DirInfo struct {
	Dev     uint64
	Mode    fs.FileMode
	ModTime time.Time
}

// Item is an immutable snapshot of one directory entry.
type Item struct {
	Name     string
	Type     Type
	Flags    Flags
	Size     int64
	Mode     fs.FileMode
	UID      uint32
	GID      uint32
	Atime    time.Time
	Ctime    time.Time
	Mtime    time.Time
	MimeType string
	Icon     string
	Errno    syscall.Errno // Non-zero when Type is TypeError
}

// New returns a blank placeholder for a name that has been listed but not
// yet statted.
func New(name string) *Item {
	return &Item{Name: name, Type: TypeUnknown, Icon: IconName(TypeUnknown, 0, "")}
}

// Failed returns an error snapshot for name. Missing files are recorded as
// ENOENT so NotFound can recognise them.
func Failed(name string, err error) *Item {
	var errno syscall.Errno
	switch {
	case errors.Is(err, fs.ErrNotExist):
		errno = syscall.ENOENT
	case errors.As(err, &errno):
	default:
		errno = syscall.EIO
	}
	return &Item{Name: name, Type: TypeError, Errno: errno, Icon: IconName(TypeError, 0, "")}
}

// NotFound reports whether the entry no longer exists.
func (it *Item) NotFound() bool {
	return it.Type == TypeError && it.Errno == syscall.ENOENT
}

// Err returns the stat error, or nil.
func (it *Item) Err() error {
	if it.Errno == 0 {
		return nil
	}
	return it.Errno
}

// IsDir reports whether the entry (or its symlink target) is a directory.
func (it *Item) IsDir() bool { return it.Type == TypeDirectory }

// IsHidden reports whether the name is a dotfile.
func (it *Item) IsHidden() bool { return strings.HasPrefix(it.Name, ".") }

// Equal reports whether two snapshots agree on every field a view renders.
func (it *Item) Equal(o *Item) bool {
	if it == o {
		return true
	}
	if it == nil || o == nil {
		return false
	}
	return it.Name == o.Name &&
		it.Errno == o.Errno &&
		it.Type == o.Type &&
		it.Flags == o.Flags &&
		it.Size == o.Size &&
		it.Mode == o.Mode &&
		it.Atime.Equal(o.Atime) &&
		it.Ctime.Equal(o.Ctime) &&
		it.Mtime.Equal(o.Mtime) &&
		it.UID == o.UID &&
		it.GID == o.GID &&
		it.MimeType == o.MimeType &&
		it.Icon == o.Icon
}

// SortByName sorts items by leaf name, in place.
func SortByName(items []*Item) {
	slices.SortFunc(items, func(a, b *Item) int { return strings.Compare(a.Name, b.Name) })
}

// Names returns the leaf names of items, in order.
func Names(items []*Item) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names
}

//go:build linux

package fs

import (
	iofs "io/fs"
	"time"

	"golang.org/x/sys/unix"

	"github.com/justyntemme/filer/internal/diritem"
)

// statEntry lstats path and, for symlinks, follows the link. A dangling
// link is reported with its own lstat details.
func statEntry(path string) (statInfo, diritem.Flags, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return statInfo{}, 0, &iofs.PathError{Op: "lstat", Path: path, Err: err}
	}

	var flags diritem.Flags
	if st.Mode&unix.S_IFMT == unix.S_IFLNK {
		flags |= diritem.FlagSymlink
		var target unix.Stat_t
		if err := unix.Stat(path, &target); err == nil {
			st = target
		}
	}
	return fromStatT(&st), flags, nil
}

func fromStatT(st *unix.Stat_t) statInfo {
	return statInfo{
		mode:  fileMode(uint32(st.Mode)),
		size:  st.Size,
		uid:   st.Uid,
		gid:   st.Gid,
		dev:   uint64(st.Dev),
		atime: time.Unix(st.Atim.Unix()),
		ctime: time.Unix(st.Ctim.Unix()),
		mtime: time.Unix(st.Mtim.Unix()),
	}
}

// fileMode converts st_mode into an fs.FileMode the way package os does.
func fileMode(m uint32) iofs.FileMode {
	mode := iofs.FileMode(m & 0o777)
	switch m & unix.S_IFMT {
	case unix.S_IFBLK:
		mode |= iofs.ModeDevice
	case unix.S_IFCHR:
		mode |= iofs.ModeDevice | iofs.ModeCharDevice
	case unix.S_IFDIR:
		mode |= iofs.ModeDir
	case unix.S_IFIFO:
		mode |= iofs.ModeNamedPipe
	case unix.S_IFLNK:
		mode |= iofs.ModeSymlink
	case unix.S_IFSOCK:
		mode |= iofs.ModeSocket
	}
	if m&unix.S_ISGID != 0 {
		mode |= iofs.ModeSetgid
	}
	if m&unix.S_ISUID != 0 {
		mode |= iofs.ModeSetuid
	}
	if m&unix.S_ISVTX != 0 {
		mode |= iofs.ModeSticky
	}
	return mode
}

//go:build !linux

package fs

import (
	"os"

	"github.com/justyntemme/filer/internal/diritem"
)

// statEntry falls back to package os. Ownership, device and access/change
// times are not portable and are left zero; ctime and atime mirror mtime.
func statEntry(path string) (statInfo, diritem.Flags, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return statInfo{}, 0, err
	}

	var flags diritem.Flags
	if info.Mode()&os.ModeSymlink != 0 {
		flags |= diritem.FlagSymlink
		if target, err := os.Stat(path); err == nil {
			info = target
		}
	}
	return statInfo{
		mode:  info.Mode(),
		size:  info.Size(),
		atime: info.ModTime(),
		ctime: info.ModTime(),
		mtime: info.ModTime(),
	}, flags, nil
}

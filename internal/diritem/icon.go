package diritem

import "strings"

// IconName picks the icon a view should draw for an entry. Names follow
// freedesktop icon theme naming so a theme loader can resolve them.
func IconName(t Type, flags Flags, mimeType string) string {
	switch t {
	case TypeUnknown:
		return "image-loading"
	case TypeError:
		return "dialog-error"
	case TypeDirectory:
		if flags.Has(FlagMountPoint) {
			return "drive-harddisk"
		}
		return "folder"
	case TypeSymlink:
		return "emblem-symbolic-link"
	case TypeSocket, TypeFIFO, TypeBlock, TypeChar:
		return "inode-" + t.String()
	}

	if flags.Has(FlagExecutable) && (mimeType == "" || mimeType == "application/octet-stream") {
		return "application-x-executable"
	}
	if mimeType == "" {
		return "text-x-generic"
	}
	// "text/plain; charset=utf-8" -> "text-plain"
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ReplaceAll(strings.TrimSpace(mimeType), "/", "-")
}

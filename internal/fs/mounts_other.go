//go:build !linux

package fs

// readMountPoints has no portable source; only the root is reported.
func readMountPoints() map[string]bool {
	return map[string]bool{"/": true}
}

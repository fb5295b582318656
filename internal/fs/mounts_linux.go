//go:build linux

package fs

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/justyntemme/filer/internal/debug"
)

const procMounts = "/proc/mounts"

// readMountPoints parses /proc/mounts. Every mount point is kept, virtual
// filesystems included, since any of them can be browsed.
func readMountPoints() map[string]bool {
	points := map[string]bool{"/": true}

	file, err := os.Open(procMounts)
	if err != nil {
		debug.Log(debug.SCAN, "readMountPoints: %v", err)
		return points
	}
	defer file.Close()

	return parseMounts(bufio.NewScanner(file), points)
}

func parseMounts(scanner *bufio.Scanner, points map[string]bool) map[string]bool {
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		points[unescapeMount(fields[1])] = true
	}
	return points
}

// unescapeMount decodes the octal escapes the kernel uses for spaces, tabs,
// newlines and backslashes in mount paths ("\040" for a space).
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

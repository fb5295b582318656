//go:build linux

package fs

import (
	"bufio"
	"strings"
	"testing"
)

func TestParseMounts(t *testing.T) {
	input := strings.Join([]string{
		"sysfs /sys sysfs rw,nosuid 0 0",
		"/dev/sda1 / ext4 rw,relatime 0 0",
		"/dev/sdb1 /media/My\\040Disk vfat rw 0 0",
		"garbage",
	}, "\n")

	points := parseMounts(bufio.NewScanner(strings.NewReader(input)), map[string]bool{})

	for _, want := range []string{"/sys", "/", "/media/My Disk"} {
		if !points[want] {
			t.Errorf("expected mount point %q in %v", want, points)
		}
	}
	if len(points) != 3 {
		t.Errorf("expected 3 mount points, got %d", len(points))
	}
}

func TestUnescapeMount(t *testing.T) {
	testCases := []struct {
		in, expected string
	}{
		{"/plain", "/plain"},
		{`/a\040b`, "/a b"},
		{`/tab\011x`, "/tab\tx"},
		{`/back\134slash`, `/back\slash`},
		{`/short\04`, `/short\04`},
	}

	for _, tc := range testCases {
		if got := unescapeMount(tc.in); got != tc.expected {
			t.Errorf("unescapeMount(%q): expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

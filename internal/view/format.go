package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/justyntemme/filer/internal/diritem"
)

// FormatRow renders one entry as a line of a long listing, with times
// relative to now.
func FormatRow(it *diritem.Item, now time.Time) string {
	name := it.Name
	switch {
	case it.IsDir():
		name += "/"
	case it.Flags.Has(diritem.FlagExecutable):
		name += "*"
	}
	if it.Flags.Has(diritem.FlagSymlink) {
		name += "@"
	}

	switch it.Type {
	case diritem.TypeUnknown:
		return fmt.Sprintf("%-10s %9s  %-14s  %s", "?", "", "", name)
	case diritem.TypeError:
		return fmt.Sprintf("%-10s %9s  %-14s  %s (%v)", "!", "", "", name, it.Err())
	}

	size := "-"
	if !it.IsDir() {
		size = humanize.Bytes(uint64(it.Size))
	}
	when := humanize.RelTime(it.Mtime, now, "ago", "from now")

	return fmt.Sprintf("%-10s %9s  %-14s  %s", it.Mode.String(), size, when, name)
}

// FormatSummary describes the listing in one line, e.g. "1,204 items (3 hidden)".
func FormatSummary(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s items", humanize.Comma(int64(len(s.Rows))))
	if hidden := s.Total - len(s.Rows); hidden > 0 {
		fmt.Fprintf(&b, " (%s hidden)", humanize.Comma(int64(hidden)))
	}
	if s.Scanning {
		b.WriteString(", scanning")
	}
	if s.Error != "" {
		fmt.Fprintf(&b, ", %s", s.Error)
	}
	return b.String()
}

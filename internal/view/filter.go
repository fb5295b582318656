package view

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/justyntemme/filer/internal/diritem"
)

// TermType is the field a filter term tests.
type TermType int

const (
	TermName TermType = iota
	TermExt
	TermSize
	TermModified
	TermKind
)

// Operator compares a size or time term.
type Operator int

const (
	OpEquals Operator = iota
	OpGreater
	OpLess
	OpGreaterEq
	OpLessEq
)

// Term is one condition of a Filter.
type Term struct {
	Type     TermType
	Value    string
	Operator Operator
	Size     uint64
	Time     time.Time
}

// Filter restricts the rows a Model shows. Every term must match.
type Filter struct {
	Terms []Term
	Raw   string
}

// ParseFilter parses a filter string relative to now.
// Examples:
//   - "foo" -> name contains foo
//   - "*.go" -> name glob
//   - "ext:go" -> .go extension
//   - "size:>1MB" -> larger than 1,000,000 bytes ("1MiB" for 1,048,576)
//   - "modified:>2024-01-01", "modified:>week"
//   - "kind:dir" -> directories (also file, link, other)
func ParseFilter(input string, now time.Time) Filter {
	f := Filter{Raw: input}
	for _, part := range splitRespectingQuotes(strings.TrimSpace(input)) {
		f.Terms = append(f.Terms, parseTerm(part, now))
	}
	return f
}

// IsEmpty reports whether the filter lets everything through.
func (f Filter) IsEmpty() bool { return len(f.Terms) == 0 }

func splitRespectingQuotes(s string) []string {
	var parts []string
	var current strings.Builder
	quote := rune(0)

	for _, r := range s {
		switch {
		case (r == '"' || r == '\'') && quote == 0:
			quote = r
		case r == quote:
			quote = 0
		case r == ' ' && quote == 0:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func parseTerm(s string, now time.Time) Term {
	idx := strings.Index(s, ":")
	if idx <= 0 {
		return Term{Type: TermName, Value: strings.ToLower(s)}
	}
	key := strings.ToLower(s[:idx])
	value := strings.Trim(s[idx+1:], "\"'")

	switch key {
	case "name", "filename":
		return Term{Type: TermName, Value: strings.ToLower(value)}
	case "ext", "extension":
		if !strings.HasPrefix(value, ".") {
			value = "." + value
		}
		return Term{Type: TermExt, Value: strings.ToLower(value)}
	case "size":
		op, num := parseOperator(value)
		size, err := humanize.ParseBytes(num)
		if err != nil {
			size = 0
		}
		return Term{Type: TermSize, Value: value, Operator: op, Size: size}
	case "modified", "date", "mtime":
		op, date := parseOperator(value)
		return Term{Type: TermModified, Value: value, Operator: op, Time: parseDate(date, now)}
	case "kind":
		return Term{Type: TermKind, Value: strings.ToLower(value)}
	}
	return Term{Type: TermName, Value: strings.ToLower(s)}
}

func parseOperator(s string) (Operator, string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, ">="):
		return OpGreaterEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "<="):
		return OpLessEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, ">"):
		return OpGreater, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "<"):
		return OpLess, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "="):
		return OpEquals, strings.TrimSpace(s[1:])
	default:
		return OpEquals, s
	}
}

// parseDate accepts dates like "2024-01-01" and the words today,
// yesterday, week, month and year. Unparseable input gives the zero time.
func parseDate(s string, now time.Time) time.Time {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "yesterday":
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	}

	for _, layout := range []string{"2006-01-02", "2006-01", "2006/01/02", "01/02/2006", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Match reports whether it passes every term. Blank items only match
// name, extension and empty filters.
func (f Filter) Match(it *diritem.Item) bool {
	for _, t := range f.Terms {
		if !t.match(it) {
			return false
		}
	}
	return true
}

func (t Term) match(it *diritem.Item) bool {
	name := strings.ToLower(it.Name)

	switch t.Type {
	case TermName:
		if strings.ContainsAny(t.Value, "*?[") {
			ok, err := filepath.Match(t.Value, name)
			return err == nil && ok
		}
		return strings.Contains(name, t.Value)

	case TermExt:
		return strings.ToLower(filepath.Ext(it.Name)) == t.Value

	case TermSize:
		if it.Type == diritem.TypeUnknown || it.IsDir() {
			return false
		}
		return compare(uint64(it.Size), t.Size, t.Operator)

	case TermModified:
		if t.Time.IsZero() {
			return true
		}
		if it.Type == diritem.TypeUnknown {
			return false
		}
		return compareTime(it.Mtime, t.Time, t.Operator)

	case TermKind:
		switch t.Value {
		case "dir", "directory", "d":
			return it.IsDir()
		case "file", "f":
			return it.Type == diritem.TypeRegular
		case "link", "symlink", "l":
			return it.Flags.Has(diritem.FlagSymlink) || it.Type == diritem.TypeSymlink
		case "other":
			return it.Type != diritem.TypeRegular && !it.IsDir() && it.Type != diritem.TypeUnknown
		}
		return false
	}
	return true
}

func compare(val, target uint64, op Operator) bool {
	switch op {
	case OpGreater:
		return val > target
	case OpLess:
		return val < target
	case OpGreaterEq:
		return val >= target
	case OpLessEq:
		return val <= target
	default:
		return val == target
	}
}

func compareTime(val, target time.Time, op Operator) bool {
	switch op {
	case OpGreater:
		return val.After(target)
	case OpLess:
		return val.Before(target)
	case OpGreaterEq:
		return !val.Before(target)
	case OpLessEq:
		return !val.After(target)
	default:
		// Same calendar day
		vy, vm, vd := val.Date()
		ty, tm, td := target.Date()
		return vy == ty && vm == tm && vd == td
	}
}

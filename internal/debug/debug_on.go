//go:build debug

// Package debug provides a centralized, categorized debug logging system.
// Build with -tags debug to enable logging.
package debug

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	DIR   Category = "DIR"   // Directory cache lifecycle, attach/detach, fan-out
	SCAN  Category = "SCAN"  // Full rescans and recheck queue progress
	WATCH Category = "WATCH" // fsnotify subscriptions and raw events
	LOOP  Category = "LOOP"  // Scheduler sources (idle, timeouts)
	STORE Category = "STORE" // Journal and settings database
	VIEW  Category = "VIEW"  // View model updates
	CLI   Category = "CLI"   // Command line front-end

	// Per-entry logging, very verbose
	ITEM Category = "ITEM"
)

var (
	enabledCategories = map[Category]bool{
		DIR:   true,
		SCAN:  true,
		WATCH: true,
		LOOP:  false,
		STORE: true,
		VIEW:  true,
		CLI:   true,
		ITEM:  false,
	}
	categoryMu sync.RWMutex

	logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
)

func init() {
	// FILER_DEBUG=DIR,SCAN or FILER_DEBUG=all or FILER_DEBUG=none
	env := os.Getenv("FILER_DEBUG")
	if env == "" {
		return
	}
	categoryMu.Lock()
	defer categoryMu.Unlock()

	switch env = strings.ToUpper(env); env {
	case "ALL":
		setAllLocked(true)
	case "NONE":
		setAllLocked(false)
	default:
		setAllLocked(false)
		for _, cat := range strings.Split(env, ",") {
			enabledCategories[Category(strings.TrimSpace(cat))] = true
		}
	}
}

func setAllLocked(on bool) {
	for cat := range enabledCategories {
		enabledCategories[cat] = on
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}
	logger.Printf("[%s] %s", cat, fmt.Sprintf(format, args...))
}

// Warn reports a misuse of an API. It is printed regardless of category.
func Warn(format string, args ...interface{}) {
	logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

// EnableAll enables all debug categories including verbose ones
func EnableAll() {
	categoryMu.Lock()
	setAllLocked(true)
	categoryMu.Unlock()
}

// DisableAll disables all debug categories
func DisableAll() {
	categoryMu.Lock()
	setAllLocked(false)
	categoryMu.Unlock()
}

// ListEnabled returns the enabled categories in name order
func ListEnabled() []Category {
	categoryMu.RLock()
	defer categoryMu.RUnlock()

	var enabled []Category
	for cat, on := range enabledCategories {
		if on {
			enabled = append(enabled, cat)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i] < enabled[j] })
	return enabled
}

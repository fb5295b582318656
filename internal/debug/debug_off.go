//go:build !debug

// Package debug provides a centralized, categorized debug logging system.
// This is the no-op version for release builds; only Warn produces output.
package debug

import "log"

// Enabled indicates whether debug logging is active
const Enabled = false

// Category represents a debug logging category
type Category string

const (
	DIR   Category = "DIR"
	SCAN  Category = "SCAN"
	WATCH Category = "WATCH"
	LOOP  Category = "LOOP"
	STORE Category = "STORE"
	VIEW  Category = "VIEW"
	CLI   Category = "CLI"
	ITEM  Category = "ITEM"
)

// Log is a no-op in release builds
func Log(cat Category, format string, args ...interface{}) {}

// Warn reports a misuse of an API through the standard logger.
func Warn(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}

// Enable is a no-op in release builds
func Enable(cat Category) {}

// Disable is a no-op in release builds
func Disable(cat Category) {}

// IsEnabled always returns false in release builds
func IsEnabled(cat Category) bool { return false }

// EnableAll is a no-op in release builds
func EnableAll() {}

// DisableAll is a no-op in release builds
func DisableAll() {}

// ListEnabled returns nil in release builds
func ListEnabled() []Category { return nil }

package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/justyntemme/filer/internal/debug"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Dir      DirConfig      `json:"dir"`
	FileList FileListConfig `json:"fileList"`
	Journal  JournalConfig  `json:"journal"`
}

// DirConfig holds directory cache settings
type DirConfig struct {
	CloseWhenMissing bool `json:"closeWhenMissing"` // Close views of directories that disappear
	RescanDelayMs    int  `json:"rescanDelayMs"`    // Quiet period after a change before rescanning
	NotifyDelayMs    int  `json:"notifyDelayMs"`    // Batching window for single-entry checks
	EvictUnused      bool `json:"evictUnused"`      // Forget directories nobody is viewing
	Watch            bool `json:"watch"`            // Subscribe to filesystem change notifications
}

// FileListConfig holds file list display settings
type FileListConfig struct {
	ShowDotfiles  bool   `json:"showDotfiles"`
	DefaultSort   string `json:"defaultSort"` // "name" | "date" | "type" | "size"
	SortAscending bool   `json:"sortAscending"`
}

// JournalConfig holds event journal settings
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"` // Empty means journal.db next to config.json
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Dir: DirConfig{
			CloseWhenMissing: false,
			RescanDelayMs:    300,
			NotifyDelayMs:    1500,
			EvictUnused:      false,
			Watch:            true,
		},
		FileList: FileListConfig{
			ShowDotfiles:  false,
			DefaultSort:   "name",
			SortAscending: true,
		},
		Journal: JournalConfig{
			Enabled: false,
		},
	}
}

// ConfigPath returns the config file path: ~/.config/filer/config.json
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "filer", "config.json")
}

// Load reads the configuration from ConfigPath.
func (m *Manager) Load() error {
	return m.LoadFrom(ConfigPath())
}

// LoadFrom reads the configuration from path.
// If the file doesn't exist, creates it with defaults
// If parsing fails, stores the error and returns defaults
func (m *Manager) LoadFrom(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.path = path
	m.parseErr = nil

	// Ensure config directory exists
	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		log.Printf("Config: failed to create directory %s: %v", configDir, err)
		return err
	}

	// Try to read existing config
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		debug.Log(debug.CLI, "Config: creating default config at %s", m.path)
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			log.Printf("Config: failed to save default config: %v", saveErr)
			return saveErr
		}
		return nil
	}
	if err != nil {
		log.Printf("Config: failed to read %s: %v", m.path, err)
		return err
	}

	// Keys missing from the file keep their defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("Config: JSON parse error: %v", err)
		m.parseErr = err
		m.config = DefaultConfig()
		return nil // Don't return error - we're using defaults
	}

	debug.Log(debug.CLI, "Config: loaded from %s", m.path)
	m.config = cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	if m.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// RescanDelay returns the rescan debounce. Non-positive values mean the default.
func (m *Manager) RescanDelay() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return millis(m.config.Dir.RescanDelayMs, 300)
}

// NotifyDelay returns the single-entry batching window.
func (m *Manager) NotifyDelay() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return millis(m.config.Dir.NotifyDelayMs, 1500)
}

func millis(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

// JournalPath returns where the event journal lives.
func (m *Manager) JournalPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config.Journal.Path != "" {
		return m.config.Journal.Path
	}
	base := m.path
	if base == "" {
		base = ConfigPath()
	}
	return filepath.Join(filepath.Dir(base), "journal.db")
}

// SetShowDotfiles updates the show dotfiles setting
func (m *Manager) SetShowDotfiles(show bool) {
	m.mu.Lock()
	m.config.FileList.ShowDotfiles = show
	m.mu.Unlock()
	m.Save()
}

// SetDefaultSort updates the sort column and direction
func (m *Manager) SetDefaultSort(column string, ascending bool) {
	m.mu.Lock()
	m.config.FileList.DefaultSort = column
	m.config.FileList.SortAscending = ascending
	m.mu.Unlock()
	m.Save()
}

// SetJournal enables or disables the event journal
func (m *Manager) SetJournal(enabled bool) {
	m.mu.Lock()
	m.config.Journal.Enabled = enabled
	m.mu.Unlock()
	m.Save()
}

// GenerateConfig backs up the config at ConfigPath and writes defaults.
func GenerateConfig() (backupPath string, err error) {
	return GenerateConfigAt(ConfigPath())
}

// GenerateConfigAt backs up existing config and creates a fresh default config
// Returns the backup path if a backup was created, or empty string if no existing config
func GenerateConfigAt(configPath string) (backupPath string, err error) {
	// Check if existing config exists
	if _, err := os.Stat(configPath); err == nil {
		// Create backup with timestamp
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(configPath), "config.backup."+timestamp+".json")

		// Read existing config
		data, err := os.ReadFile(configPath)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}

		// Write backup
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write fresh default config
	defaultCfg := DefaultConfig()
	data, err := json.MarshalIndent(defaultCfg, "", "  ")
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}

	return backupPath, nil
}

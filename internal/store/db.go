package store

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/justyntemme/filer/internal/debug"
)

type Op int

const (
	RecordEvents Op = iota
	FetchEvents
	FetchSettings
	SaveSetting
)

// Event is one journal row: a single entry reported added, updated or
// removed in a directory.
type Event struct {
	Session string
	Dir     string
	Kind    string
	Name    string
	Time    time.Time
}

type Request struct {
	Op     Op
	Events []Event // RecordEvents
	Dir    string  // FetchEvents; empty means every directory
	Limit  int     // FetchEvents; 0 means no limit
	Key    string
	Value  string
}

type Response struct {
	Op       Op
	Events   []Event           // Oldest first
	Settings map[string]string // Key-value settings
	Err      error
}

type DB struct {
	conn *sql.DB

	// Session identifies the rows recorded by this process.
	Session string

	RequestChan  chan Request
	ResponseChan chan Response
}

func NewDB() *DB {
	return &DB{
		Session:      uuid.NewString(),
		RequestChan:  make(chan Request, 64),
		ResponseChan: make(chan Response, 10),
	}
}

// Open initializes the database connection and schema
func (d *DB) Open(dbPath string) error {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	// WAL mode allows simultaneous readers and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return err
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return err
	}

	// Schema - Journal table
	query := `
	CREATE TABLE IF NOT EXISTS journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		dir TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS journal_dir ON journal (dir, id);
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return err
	}

	// Schema - Settings table
	settingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(settingsQuery); err != nil {
		db.Close()
		return err
	}

	debug.Log(debug.STORE, "Open: %s (session %s)", dbPath, d.Session)
	d.conn = db
	return nil
}

// Start serves requests until RequestChan is closed. RecordEvents has no
// response; every other request gets exactly one.
func (d *DB) Start() {
	for req := range d.RequestChan {
		switch req.Op {
		case RecordEvents:
			d.handleRecord(req.Events)
		case FetchEvents:
			d.handleFetchEvents(req.Dir, req.Limit)
		case FetchSettings:
			d.handleFetchSettings()
		case SaveSetting:
			d.handleSaveSetting(req.Key, req.Value)
		}
	}
}

func (d *DB) handleRecord(events []Event) {
	if len(events) == 0 {
		return
	}
	tx, err := d.conn.Begin()
	if err != nil {
		log.Printf("Store Error: %v", err)
		return
	}
	stmt, err := tx.Prepare("INSERT INTO journal (session, dir, kind, name, at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		log.Printf("Store Error: %v", err)
		return
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.Session, ev.Dir, ev.Kind, ev.Name, ev.Time.UnixNano()); err != nil {
			tx.Rollback()
			log.Printf("Store Error recording %s/%s: %v", ev.Dir, ev.Name, err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("Store Error: %v", err)
		return
	}
	debug.Log(debug.STORE, "handleRecord: %d rows", len(events))
}

func (d *DB) handleFetchEvents(dir string, limit int) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	var (
		rows *sql.Rows
		err  error
	)
	if dir == "" {
		rows, err = d.conn.Query("SELECT session, dir, kind, name, at FROM journal ORDER BY id DESC LIMIT ?", limit)
	} else {
		rows, err = d.conn.Query("SELECT session, dir, kind, name, at FROM journal WHERE dir = ? ORDER BY id DESC LIMIT ?", dir, limit)
	}
	if err != nil {
		d.ResponseChan <- Response{Op: FetchEvents, Err: err}
		return
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev Event
			at int64
		)
		if err := rows.Scan(&ev.Session, &ev.Dir, &ev.Kind, &ev.Name, &at); err == nil {
			ev.Time = time.Unix(0, at)
			events = append(events, ev)
		}
	}
	// Newest rows were selected so the limit keeps the tail; report oldest first
	slices.Reverse(events)

	d.ResponseChan <- Response{Op: FetchEvents, Events: events, Err: rows.Err()}
}

func (d *DB) handleFetchSettings() {
	rows, err := d.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		d.ResponseChan <- Response{Op: FetchSettings, Err: err}
		return
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err == nil {
			settings[key] = value
		}
	}

	d.ResponseChan <- Response{Op: FetchSettings, Settings: settings}
}

func (d *DB) handleSaveSetting(key, value string) {
	// Use INSERT OR REPLACE to upsert the setting
	_, err := d.conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		log.Printf("Store Error saving setting: %v", err)
	}
	// Trigger a fetch to sync settings
	d.handleFetchSettings()
}

func (d *DB) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}

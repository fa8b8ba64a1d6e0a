package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// BattleRow is one archived battle result. Only results are persisted;
// live simulation state never touches the database.
type BattleRow struct {
	ID          string
	WinnerTeam  int
	DurationMs  float64
	Conversions int
	FinalCount  int
	CreatedAt   time.Time
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL mode for concurrent reads while the analytics writer flushes
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS battles (
		id TEXT PRIMARY KEY,
		winner_team INTEGER NOT NULL DEFAULT 0,
		duration_ms REAL NOT NULL DEFAULT 0,
		conversions INTEGER NOT NULL DEFAULT 0,
		final_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS battle_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		battle_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		species TEXT,
		data TEXT,
		sim_time_ms REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_battle_events_battle ON battle_events(battle_id);
	CREATE INDEX IF NOT EXISTS idx_battle_events_type ON battle_events(event_type);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// GetSetting returns a settings value, or "" if unset
func (db *DB) GetSetting(key string) string {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// SetSetting upserts a settings value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// InsertBattle archives a finished battle's result
func (db *DB) InsertBattle(id string, winnerTeam int, durationMs float64, conversions, finalCount int) error {
	_, err := db.conn.Exec(
		"INSERT INTO battles (id, winner_team, duration_ms, conversions, final_count) VALUES (?, ?, ?, ?, ?)",
		id, winnerTeam, durationMs, conversions, finalCount,
	)
	return err
}

// GetBattle returns one archived battle, or nil if unknown
func (db *DB) GetBattle(id string) (*BattleRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, winner_team, duration_ms, conversions, final_count, created_at FROM battles WHERE id = ?",
		id,
	)
	b := &BattleRow{}
	err := row.Scan(&b.ID, &b.WinnerTeam, &b.DurationMs, &b.Conversions, &b.FinalCount, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

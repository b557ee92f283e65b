// Package serverdb is the server's document store: users, API keys, one
// journey document and one subscription document per user, with a change
// feed for live watches.
package serverdb

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ServerDB wraps the server database connection
type ServerDB struct {
	conn   *sql.DB
	broker *broker
}

// pragmas are applied to every connection. Failures of the first two abort
// Open; the rest are best effort.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Open opens (creating if needed) the database at dbPath, which may be
// ":memory:", and brings its schema up to date.
func Open(dbPath string) (*ServerDB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps writes serialized and :memory: a single database.
	conn.SetMaxOpenConns(1)

	for i, p := range pragmas {
		if _, err := conn.Exec(p); err != nil && i < 2 {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := conn.Exec(serverSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := &ServerDB{conn: conn, broker: newBroker()}
	if _, err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Ping checks the database connection is alive.
func (db *ServerDB) Ping() error {
	return db.conn.Ping()
}

// Close ends every open watch, checkpoints the WAL and closes the
// connection.
func (db *ServerDB) Close() error {
	db.broker.closeAll()
	db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return db.conn.Close()
}

// RunMigrations applies pending migrations, each in its own transaction
// together with the user_version bump, and reports how many ran.
func (db *ServerDB) RunMigrations() (int, error) {
	current := db.getSchemaVersion()
	ran := 0
	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		if err := db.migrate(m); err != nil {
			return ran, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		ran++
	}
	if current < ServerSchemaVersion {
		if err := db.setSchemaVersion(db.conn, ServerSchemaVersion); err != nil {
			return ran, err
		}
	}
	return ran, nil
}

func (db *ServerDB) migrate(m Migration) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return err
	}
	if err := db.setSchemaVersion(tx, m.Version); err != nil {
		return err
	}
	return tx.Commit()
}

// getSchemaVersion reads sqlite's user_version; 0 means a fresh database.
func (db *ServerDB) getSchemaVersion() int {
	var v int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0
	}
	return v
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (db *ServerDB) setSchemaVersion(x execer, version int) error {
	// PRAGMA does not accept bound parameters.
	_, err := x.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
	return err
}

// generateID returns prefix followed by 16 random hex chars.
func generateID(prefix string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}

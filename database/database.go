package database

import (
	"database/sql"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// import run states
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// InitDB opens the raw SQL handle used for the import ledger and creates its table.
func InitDB(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// enable write-ahead logging, the GORM handle writes to the same file
	_, err = db.Exec("PRAGMA journal_mode=WAL;")
	if err != nil {
		log.Printf("warning: failed to set WAL mode: %v", err)
	}
	_, err = db.Exec("PRAGMA busy_timeout = 5000;")
	if err != nil {
		log.Printf("warning: failed to set busy timeout: %v", err)
	}

	sqlStmt := `
	CREATE TABLE IF NOT EXISTS import_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint TEXT NOT NULL,
		tree_id TEXT NOT NULL,
		filename TEXT NOT NULL DEFAULT '',
		format TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		people_imported INTEGER NOT NULL DEFAULT 0,
		people_skipped INTEGER NOT NULL DEFAULT 0,
		relationships_imported INTEGER NOT NULL DEFAULT 0,
		relationships_skipped INTEGER NOT NULL DEFAULT 0,
		parse_errors INTEGER NOT NULL DEFAULT 0,
		parse_warnings INTEGER NOT NULL DEFAULT 0,
		generations INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_import_runs_tree ON import_runs (tree_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_import_runs_fingerprint ON import_runs (tree_id, fingerprint);
	`
	_, err = db.Exec(sqlStmt)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create import_runs table: %w", err)
	}

	log.Println("database initialized successfully at", dataSourceName)
	return db, nil
}

package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

// InitDB opens the local replica database and creates the schema.
func InitDB() error {
	var dsn string
	testMode := os.Getenv("TEST_DB") == "1"
	if testMode {
		// We're running tests, use an in-memory database. cache=shared keeps
		// every pooled connection on the same database.
		dsn = "file::memory:?cache=shared&_busy_timeout=10000"
	} else if p := os.Getenv("DB_PATH"); p != "" {
		dsn = p + "?_journal=WAL&_timeout=10000&_busy_timeout=10000"
	} else {
		dsn = filepath.Join(".", "finance.db") + "?_journal=WAL&_timeout=10000&_busy_timeout=10000"
	}

	var err error
	DB, err = sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}

	// The sync engine, the realtime listener and the HTTP handlers all share
	// this handle; SQLite serializes the actual writes.
	if testMode {
		DB.SetMaxOpenConns(1)
	} else {
		DB.SetMaxOpenConns(5)
		DB.SetMaxIdleConns(5)
		DB.SetConnMaxLifetime(time.Minute * 5)

		if _, err := DB.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return err
		}
	}

	_, err = DB.Exec("PRAGMA busy_timeout=5000;")
	if err != nil {
		return err
	}

	err = DB.Ping()
	if err != nil {
		return err
	}

	return createSchema()
}

func createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS months (
			id TEXT PRIMARY KEY,
			expected_income REAL NOT NULL DEFAULT 0,
			savings_goal REAL NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL DEFAULT 0,
			synced BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS budgets (
			id TEXT PRIMARY KEY,
			month_id TEXT NOT NULL,
			category TEXT NOT NULL,
			planned_amount REAL NOT NULL DEFAULT 0,
			tag TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL DEFAULT 0,
			synced BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_budgets_month ON budgets(month_id);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			budget_id TEXT NOT NULL,
			amount REAL NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT 0,
			synced BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_budget ON transactions(budget_id);`,
		`CREATE TABLE IF NOT EXISTS bonds (
			id TEXT PRIMARY KEY,
			principal REAL NOT NULL,
			rate REAL NOT NULL,
			purchase_date TEXT NOT NULL,
			duration_years REAL NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT 0,
			synced BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS deleted_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL,
			table_name TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			synced BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_deleted_records_synced ON deleted_records(synced);`,
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ClearData wipes every table of the replica. Used on sign-out and on a
// fresh sign-in so one account's offline data never mixes with another's.
func ClearData() error {
	tables := []string{"months", "budgets", "transactions", "bonds", "deleted_records"}
	for _, table := range tables {
		if _, err := DB.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

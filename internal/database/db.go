package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB creates a new database connection with optimized pooling
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "cookieguard.db")

	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS repositories (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			maintainers TEXT, -- JSON array of handles
			created_at DATETIME NOT NULL,
			UNIQUE(owner, name)
		)`,

		`CREATE TABLE IF NOT EXISTS issues (
			id TEXT PRIMARY KEY,
			repository_id TEXT NOT NULL,
			number INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			labels TEXT, -- JSON array of label names
			watchers INTEGER DEFAULT 0,
			comments INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (repository_id) REFERENCES repositories(id),
			UNIQUE(repository_id, number)
		)`,

		`CREATE TABLE IF NOT EXISTS claims (
			id TEXT PRIMARY KEY,
			issue_id TEXT NOT NULL,
			repository_id TEXT NOT NULL,
			claimant_id TEXT NOT NULL,
			claimant_handle TEXT NOT NULL,
			claim_text TEXT,
			claimed_at DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			last_activity_at DATETIME,
			nudges_sent INTEGER DEFAULT 0,
			first_nudge_at DATETIME,
			completed_at DATETIME,
			release_reason TEXT,
			FOREIGN KEY (issue_id) REFERENCES issues(id),
			FOREIGN KEY (repository_id) REFERENCES repositories(id)
		)`,

		`CREATE TABLE IF NOT EXISTS activity_log (
			id TEXT PRIMARY KEY,
			claim_id TEXT NOT NULL,
			claimant_id TEXT NOT NULL,
			kind TEXT NOT NULL, -- commit, pull_request, review, comment
			detail TEXT,
			occurred_at DATETIME NOT NULL,
			FOREIGN KEY (claim_id) REFERENCES claims(id)
		)`,

		`CREATE TABLE IF NOT EXISTS nudge_log (
			id TEXT PRIMARY KEY,
			claim_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			tone TEXT NOT NULL,
			scheduled_for DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (claim_id) REFERENCES claims(id)
		)`,

		// Indexes for the hot query paths
		`CREATE INDEX IF NOT EXISTS idx_claims_claimant ON claims(claimant_id, claimed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_issue_status ON claims(issue_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_repo_status ON claims(repository_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_claim ON activity_log(claim_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_claimant ON activity_log(claimant_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_nudge_claim ON nudge_log(claim_id, ordinal)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_repo ON issues(repository_id, number)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"insert_claim": `INSERT INTO claims (
			id, issue_id, repository_id, claimant_id, claimant_handle,
			claim_text, claimed_at, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,

		"get_claim": `SELECT id, issue_id, repository_id, claimant_id, claimant_handle,
			claim_text, claimed_at, status, last_activity_at, nudges_sent,
			first_nudge_at, completed_at, release_reason
			FROM claims WHERE id = ?`,

		"get_active_claim_by_issue": `SELECT id, issue_id, repository_id, claimant_id, claimant_handle,
			claim_text, claimed_at, status, last_activity_at, nudges_sent,
			first_nudge_at, completed_at, release_reason
			FROM claims WHERE issue_id = ? AND status = 'ACTIVE'
			ORDER BY claimed_at ASC LIMIT 1`,

		"get_claim_history": `SELECT id, issue_id, repository_id, claimant_id, claimant_handle,
			claim_text, claimed_at, status, last_activity_at, nudges_sent,
			first_nudge_at, completed_at, release_reason
			FROM claims WHERE claimant_id = ?
			ORDER BY claimed_at DESC LIMIT ?`,

		"insert_activity": `INSERT INTO activity_log (id, claim_id, claimant_id, kind, detail, occurred_at)
			VALUES (?, ?, ?, ?, ?, ?)`,

		"insert_nudge": `INSERT INTO nudge_log (id, claim_id, ordinal, tone, scheduled_for, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}

package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/whispernote/whisperd/pkg/protocol"
)

// TransmissionStore handles persistent storage of transmission records
type TransmissionStore struct {
	db               *sql.DB
	dbPath           string
	maxTransmissions int
}

// NewTransmissionStore creates a new transmission store with SQLite backend
func NewTransmissionStore(dbPath string, maxTransmissions int) (*TransmissionStore, error) {
	store := &TransmissionStore{
		dbPath:           dbPath,
		maxTransmissions: maxTransmissions,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize transmission store: %w", err)
	}

	return store, nil
}

// initialize sets up the database connection and creates tables
func (ts *TransmissionStore) initialize() error {
	// Handle empty database path
	if ts.dbPath == "" {
		ts.dbPath = "./whisperd.db"
	}

	// Create database directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(ts.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	// Build connection string properly with query parameters
	connectionString := ts.dbPath + "?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on"

	// Open database connection
	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	ts.db = db

	// Create tables
	if err := ts.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	// Create indexes for performance
	if err := ts.createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Printf("Transmission store initialized: %s (max %d transmissions)", ts.dbPath, ts.maxTransmissions)
	return nil
}

// createTables creates the database schema
func (ts *TransmissionStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transmissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		direction TEXT NOT NULL CHECK (direction IN ('RX', 'TX')),
		medium TEXT NOT NULL CHECK (medium IN ('audio', 'rf')),
		node_id TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		payload_size INTEGER NOT NULL DEFAULT 0,
		duration_ms REAL NOT NULL DEFAULT 0.0,
		status TEXT NOT NULL DEFAULT 'ok',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transmission_stats (
		id INTEGER PRIMARY KEY,
		total_transmissions INTEGER NOT NULL DEFAULT 0,
		total_rx INTEGER NOT NULL DEFAULT 0,
		total_tx INTEGER NOT NULL DEFAULT 0,
		total_failed INTEGER NOT NULL DEFAULT 0,
		last_cleanup DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Initialize stats if empty
	INSERT OR IGNORE INTO transmission_stats (id, total_transmissions, total_rx, total_tx, total_failed)
	VALUES (1, 0, 0, 0, 0);
	`

	_, err := ts.db.Exec(schema)
	return err
}

// createIndexes creates database indexes for performance
func (ts *TransmissionStore) createIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_transmissions_timestamp ON transmissions(timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_transmissions_direction ON transmissions(direction)",
		"CREATE INDEX IF NOT EXISTS idx_transmissions_medium ON transmissions(medium)",
		"CREATE INDEX IF NOT EXISTS idx_transmissions_status ON transmissions(status)",
		"CREATE INDEX IF NOT EXISTS idx_transmissions_node_id ON transmissions(node_id)",
	}

	for _, indexSQL := range indexes {
		if _, err := ts.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// StoreTransmission stores a transmission record in the database
func (ts *TransmissionStore) StoreTransmission(record protocol.Transmission) error {
	tx, err := ts.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert transmission
	query := `
		INSERT INTO transmissions (
			timestamp, direction, medium, node_id,
			payload, payload_size, duration_ms, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		record.Timestamp, record.Direction, record.Medium, record.NodeID,
		record.Payload, record.PayloadSize, record.DurationMS, record.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transmission: %w", err)
	}

	// Update stats
	if err := ts.updateStats(tx, record.Direction, record.Status); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	// Check if we need to cleanup old transmissions
	if err := ts.cleanupOldTransmissions(tx); err != nil {
		log.Printf("Warning: failed to cleanup old transmissions: %v", err)
	}

	return tx.Commit()
}

// updateStats updates transmission statistics
func (ts *TransmissionStore) updateStats(tx *sql.Tx, direction, status string) error {
	query := `
		UPDATE transmission_stats SET
			total_transmissions = total_transmissions + 1,
			total_rx = CASE WHEN ? = 'RX' THEN total_rx + 1 ELSE total_rx END,
			total_tx = CASE WHEN ? = 'TX' THEN total_tx + 1 ELSE total_tx END,
			total_failed = CASE WHEN ? != 'ok' THEN total_failed + 1 ELSE total_failed END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`

	_, err := tx.Exec(query, direction, direction, status)
	return err
}

// CleanupOldTransmissions removes records beyond the maximum limit (exported for manual cleanup)
func (ts *TransmissionStore) CleanupOldTransmissions() error {
	tx, err := ts.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ts.cleanupOldTransmissions(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// cleanupOldTransmissions removes records beyond the maximum limit
func (ts *TransmissionStore) cleanupOldTransmissions(tx *sql.Tx) error {
	if ts.maxTransmissions <= 0 {
		return nil // No limit
	}

	// Count current transmissions
	var count int
	err := tx.QueryRow("SELECT COUNT(*) FROM transmissions").Scan(&count)
	if err != nil {
		return err
	}

	if count <= ts.maxTransmissions {
		return nil // Within limit
	}

	// Delete oldest records beyond limit
	deleteCount := count - ts.maxTransmissions
	query := `
		DELETE FROM transmissions
		WHERE id IN (
			SELECT id FROM transmissions
			ORDER BY timestamp ASC
			LIMIT ?
		)
	`

	_, err = tx.Exec(query, deleteCount)
	if err != nil {
		return err
	}

	// Update cleanup timestamp
	_, err = tx.Exec("UPDATE transmission_stats SET last_cleanup = CURRENT_TIMESTAMP WHERE id = 1")
	return err
}

// Close closes the database connection
func (ts *TransmissionStore) Close() error {
	if ts.db != nil {
		return ts.db.Close()
	}
	return nil
}

// Package sqlite provides the SQLite implementation of the memory store.
//
// SQLite is a lightweight, file-based database suitable for local agents
// and small-scale deployments. All structured fields are stored as JSON
// text columns, so the database stays portable and inspectable.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/engram-labs/engram-go/pkg/storage"
)

// DefaultTable is the table name used when Config.Table is empty.
const DefaultTable = "memories"

// Config contains configuration for creating a SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// Table is the name of the table storing memories (default "memories").
	Table string
}

// Client implements storage.Store using SQLite as the backend.
type Client struct {
	db    *sql.DB
	table string
}

// NewClient creates a new SQLite store.
//
// The parent directory of the database file is created if it does not
// exist, and the memories table is initialized on first use.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	client := &Client{db: db, table: table}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			type TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL,
			tags TEXT NOT NULL,
			importance REAL NOT NULL,
			context TEXT NOT NULL,
			relationships TEXT NOT NULL,
			embedding TEXT NOT NULL,
			last_accessed TEXT NOT NULL,
			access_count INTEGER NOT NULL,
			emotional_valence REAL NOT NULL,
			confidence REAL NOT NULL
		)
	`, c.table)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_type ON %s(type)
	`, c.table, c.table)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Put inserts or replaces a memory, keyed by its id.
//
// INSERT OR REPLACE makes the upsert atomic at the row level.
func (c *Client) Put(ctx context.Context, memory *storage.Memory) error {
	row, err := storage.EncodeRow(memory)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (
			id, timestamp, type, content, metadata, tags,
			importance, context, relationships, embedding,
			last_accessed, access_count, emotional_valence, confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.table)

	_, err = c.db.ExecContext(ctx, query,
		row.ID, row.Timestamp, row.Type, row.Content, row.Metadata, row.Tags,
		row.Importance, row.Context, row.Relationships, row.Embedding,
		row.LastAccessed, row.AccessCount, row.EmotionalValence, row.Confidence,
	)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	return nil
}

// Get retrieves a memory by id.
func (c *Client) Get(ctx context.Context, id string) (*storage.Memory, error) {
	query := fmt.Sprintf(`
		SELECT id, timestamp, type, content, metadata, tags,
		       importance, context, relationships, embedding,
		       last_accessed, access_count, emotional_valence, confidence
		FROM %s
		WHERE id = ?
	`, c.table)

	memory, err := scanMemory(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	return memory, nil
}

// GetAll returns every memory in the store.
func (c *Client) GetAll(ctx context.Context) ([]*storage.Memory, error) {
	query := fmt.Sprintf(`
		SELECT id, timestamp, type, content, metadata, tags,
		       importance, context, relationships, embedding,
		       last_accessed, access_count, emotional_valence, confidence
		FROM %s
	`, c.table)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("GetAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("GetAll: %w", err)
		}
		memories = append(memories, memory)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetAll: %w", err)
	}

	return memories, nil
}

// Touch sets last_accessed and increments access_count for the given id.
func (c *Client) Touch(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET last_accessed = ?, access_count = access_count + 1
		WHERE id = ?
	`, c.table)

	result, err := c.db.ExecContext(ctx, query, at.Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("Touch: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Touch: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory scans a memory from a database row or rows.
func scanMemory(scanner rowScanner) (*storage.Memory, error) {
	var row storage.Row

	err := scanner.Scan(
		&row.ID, &row.Timestamp, &row.Type, &row.Content, &row.Metadata, &row.Tags,
		&row.Importance, &row.Context, &row.Relationships, &row.Embedding,
		&row.LastAccessed, &row.AccessCount, &row.EmotionalValence, &row.Confidence,
	)
	if err != nil {
		return nil, err
	}

	return row.Decode()
}

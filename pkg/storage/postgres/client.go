// Package postgres provides the PostgreSQL implementation of the memory store.
//
// Records use the same JSON-text column encoding as the SQLite backend,
// so a memory written by one backend can be reloaded by another.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/engram-labs/engram-go/pkg/storage"
)

// DefaultTable is the table name used when Config.Table is empty.
const DefaultTable = "memories"

// Config contains configuration for creating a PostgreSQL store.
type Config struct {
	// Host is the PostgreSQL server host.
	Host string

	// Port is the PostgreSQL server port.
	Port int

	// User is the database user.
	User string

	// Password is the database password.
	Password string

	// DBName is the database name.
	DBName string

	// Table is the name of the table storing memories (default "memories").
	Table string

	// SSLMode is the SSL mode for the connection (default "disable").
	SSLMode string
}

// Client implements storage.Store using PostgreSQL as the backend.
type Client struct {
	db    *sql.DB
	table string
}

// NewClient creates a new PostgreSQL store.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
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
			importance DOUBLE PRECISION NOT NULL,
			context TEXT NOT NULL,
			relationships TEXT NOT NULL,
			embedding TEXT NOT NULL,
			last_accessed TEXT NOT NULL,
			access_count INTEGER NOT NULL,
			emotional_valence DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL
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
func (c *Client) Put(ctx context.Context, memory *storage.Memory) error {
	row, err := storage.EncodeRow(memory)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, timestamp, type, content, metadata, tags,
			importance, context, relationships, embedding,
			last_accessed, access_count, emotional_valence, confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			timestamp = EXCLUDED.timestamp,
			type = EXCLUDED.type,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			tags = EXCLUDED.tags,
			importance = EXCLUDED.importance,
			context = EXCLUDED.context,
			relationships = EXCLUDED.relationships,
			embedding = EXCLUDED.embedding,
			last_accessed = EXCLUDED.last_accessed,
			access_count = EXCLUDED.access_count,
			emotional_valence = EXCLUDED.emotional_valence,
			confidence = EXCLUDED.confidence
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
		WHERE id = $1
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
		SET last_accessed = $1, access_count = access_count + 1
		WHERE id = $2
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

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

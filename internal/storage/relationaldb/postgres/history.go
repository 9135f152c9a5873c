// Package postgres provides a client for the optional conversion
// history PostgreSQL database. When enabled, every applied event is
// recorded off the hot path so operators can inspect activity without
// replaying the journal.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Client provides access to the history PostgreSQL database.
type Client struct {
	db *sql.DB
}

// Record is one applied event as stored in the history table.
type Record struct {
	Seq      int64
	Kind     string
	Currency string
	From     string
	To       string
	Amount   uint64
	Memo     []byte
	Applied  time.Time
}

// Config holds the database configuration.
type Config struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		Database: getEnvOrDefault("POSTGRES_DB", "relay_history"),
		User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
		Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// NewClient creates a new database client from config.
func NewClient(cfg Config) (*Client, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Client{db: db}, nil
}

// NewClientFromEnv creates a new database client using environment variables.
func NewClientFromEnv() (*Client, error) {
	return NewClient(ConfigFromEnv())
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// EnsureSchema creates the history table if it does not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS event_history (
			seq       BIGSERIAL PRIMARY KEY,
			kind      TEXT NOT NULL,
			currency  TEXT NOT NULL,
			from_acct TEXT NOT NULL DEFAULT '',
			to_acct   TEXT NOT NULL,
			amount    BIGINT NOT NULL,
			memo      BYTEA,
			applied   TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating history schema: %w", err)
	}
	return nil
}

// Append stores one applied event.
func (c *Client) Append(ctx context.Context, rec Record) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO event_history (kind, currency, from_acct, to_acct, amount, memo)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.Kind, rec.Currency, rec.From, rec.To, int64(rec.Amount), rec.Memo)
	if err != nil {
		return fmt.Errorf("inserting history record: %w", err)
	}
	return nil
}

// ListByCurrency retrieves the most recent records for one currency.
func (c *Client) ListByCurrency(ctx context.Context, currency string, limit int) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT seq, kind, currency, from_acct, to_acct, amount, memo, applied
		FROM event_history
		WHERE currency = $1
		ORDER BY seq DESC
		LIMIT $2
	`, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByAccount retrieves the most recent records touching one account.
func (c *Client) ListByAccount(ctx context.Context, account string, limit int) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT seq, kind, currency, from_acct, to_acct, amount, memo, applied
		FROM event_history
		WHERE from_acct = $1 OR to_acct = $1
		ORDER BY seq DESC
		LIMIT $2
	`, account, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the total number of history records.
func (c *Client) Count(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event_history").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting history records: %w", err)
	}
	return count, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var amount int64
		if err := rows.Scan(&rec.Seq, &rec.Kind, &rec.Currency, &rec.From,
			&rec.To, &amount, &rec.Memo, &rec.Applied); err != nil {
			return nil, fmt.Errorf("scanning history record: %w", err)
		}
		rec.Amount = uint64(amount)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history records: %w", err)
	}
	return records, nil
}

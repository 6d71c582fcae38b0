// Package storage persists trade records in PostgreSQL. The trades table
// is append-only: rows are written once when an order is submitted and
// never updated or deleted.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// TradeRecord is one persisted trade attempt.
type TradeRecord struct {
	ID        int64      `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Symbol    string     `json:"symbol"`
	Side      string     `json:"side"`
	Quantity  float64    `json:"quantity"`
	Price     *float64   `json:"price"`
	Status    string     `json:"status"`
	Details   string     `json:"details,omitempty"`
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL DEFAULT NOW(),
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			price DOUBLE PRECISION,
			status TEXT NOT NULL DEFAULT 'submitted',
			details TEXT
		)
	`)
	return err
}

// SaveTrade appends one trade record and returns it with the assigned id.
func (db *DB) SaveTrade(ctx context.Context, symbol, side string, quantity float64, price *float64, status, details string) (*TradeRecord, error) {
	rec := &TradeRecord{
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Status:    status,
		Details:   details,
	}

	err := db.QueryRowContext(ctx, `
		INSERT INTO trades (timestamp, symbol, side, quantity, price, status, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		rec.Timestamp, rec.Symbol, rec.Side, rec.Quantity, rec.Price, rec.Status, rec.Details,
	).Scan(&rec.ID)

	if err != nil {
		return nil, fmt.Errorf("inserting trade: %w", err)
	}
	return rec, nil
}

// ListTrades returns the most recent trade records, newest first.
func (db *DB) ListTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, timestamp, symbol, side, quantity, price, status, details
		FROM trades
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		var price sql.NullFloat64
		var details sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Symbol, &rec.Side, &rec.Quantity, &price, &rec.Status, &details); err != nil {
			return nil, err
		}
		if price.Valid {
			rec.Price = &price.Float64
		}
		if details.Valid {
			rec.Details = details.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

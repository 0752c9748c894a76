// Package sqlite keeps daily bar history in a local SQLite database so
// analyses can run offline.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"trading-analysisv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const defaultBatchSize = 500

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/history.db"
}

// Store reads and writes the daily_bars table.
// It implements model.HistorySource and model.BarWriter.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

var (
	_ model.HistorySource = (*Store)(nil)
	_ model.BarWriter     = (*Store)(nil)
)

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; also keeps a :memory: database alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log := slog.With("component", "sqlite")
	log.Info("opened database", "path", cfg.DBPath)
	return &Store{db: db, log: log}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_bars (
			symbol TEXT    NOT NULL,
			date   TEXT    NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (symbol, date)
		);
	`)
	return err
}

// WriteBars upserts bars in batched transactions and returns how many rows
// were written. Existing rows for the same symbol and date are replaced.
func (s *Store) WriteBars(ctx context.Context, symbol string, bars []model.Bar) (int, error) {
	written := 0
	for start := 0; start < len(bars); start += defaultBatchSize {
		end := min(start+defaultBatchSize, len(bars))
		t0 := time.Now()
		if err := s.insertBatch(ctx, symbol, bars[start:end]); err != nil {
			return written, fmt.Errorf("sqlite write %s: %w", symbol, err)
		}
		written += end - start
		s.log.Debug("committed bars", "symbol", symbol, "count", end-start, "took", time.Since(t0))
	}
	return written, nil
}

// insertBatch inserts one batch in a single transaction.
func (s *Store) insertBatch(ctx context.Context, symbol string, bars []model.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO daily_bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, symbol, b.Date.Format(model.DateLayout), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// LastDate returns the most recent stored date for symbol.
// Returns the zero time if nothing is stored.
func (s *Store) LastDate(ctx context.Context, symbol string) (time.Time, error) {
	var d sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(date) FROM daily_bars WHERE symbol = ?`, symbol).Scan(&d)
	if err != nil {
		return time.Time{}, err
	}
	if !d.Valid {
		return time.Time{}, nil
	}
	return time.Parse(model.DateLayout, d.String)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

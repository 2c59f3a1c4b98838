// Package store persists market data to a local SQLite database via sqlx.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/alirezadp10/market-trends/internal/models"
)

const defaultTable = "market_data"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS %[1]s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		market_type TEXT NOT NULL,
		jalali_date TEXT NOT NULL,
		gregorian_date TEXT NOT NULL,
		closing REAL NOT NULL,
		source TEXT NOT NULL,
		batch_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_%[1]s_market_date ON %[1]s (market_type, jalali_date)`,
	`CREATE TABLE IF NOT EXISTS fetch_batches (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP,
		status TEXT NOT NULL,
		point_count INTEGER NOT NULL DEFAULT 0,
		market_count INTEGER NOT NULL DEFAULT 0,
		metadata BLOB
	)`,
	`CREATE TABLE IF NOT EXISTS batch_statistics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		mean_closing REAL,
		median_closing REAL,
		min_closing REAL,
		max_closing REAL,
		point_count INTEGER NOT NULL DEFAULT 0,
		statistics_json BLOB,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS market_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		title TEXT NOT NULL,
		UNIQUE (date, title)
	)`,
}

// Store provides access to the market data database.
type Store struct {
	db    *sqlx.DB
	table string
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists. The table name defaults to "market_data".
func Open(path, table string) (*Store, error) {
	if table == "" {
		table = defaultTable
	}
	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, table: table}
	for _, stmt := range schema {
		if _, err := db.Exec(strings.ReplaceAll(stmt, "%[1]s", table)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	log.Printf("Connected to database at %s", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertNewPoints inserts price points that are not already present, where
// presence is one row per (market_type, jalali_date). Returns the number of
// rows actually inserted.
func (s *Store) InsertNewPoints(ctx context.Context, points []models.PricePoint) (int, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (market_type, jalali_date, gregorian_date, closing, source, batch_id)
		SELECT :market_type, :jalali_date, :gregorian_date, :closing, :source, :batch_id
		WHERE NOT EXISTS (
			SELECT 1 FROM %[1]s
			WHERE market_type = :market_type AND jalali_date = :jalali_date
		)`, s.table)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for i := range points {
		res, err := tx.NamedExecContext(ctx, query, &points[i])
		if err != nil {
			return inserted, fmt.Errorf("failed to insert price point: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// RemoveDuplicates deletes extra rows sharing a (market_type, jalali_date)
// pair, keeping one row per pair.
func (s *Store) RemoveDuplicates(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`
		DELETE FROM %[1]s WHERE id IN (
			WITH ranked AS (
				SELECT id,
					ROW_NUMBER() OVER (
						PARTITION BY market_type, jalali_date
						ORDER BY id
					) AS row_num
				FROM %[1]s
			)
			SELECT id FROM ranked WHERE row_num >= 2
		)`, s.table)

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to remove duplicates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		log.Printf("Removed %d duplicate rows", n)
	}
	return int(n), nil
}

// LoadPrices returns all rows for the given markets ordered by market and
// date. With no markets given it returns everything.
func (s *Store) LoadPrices(ctx context.Context, marketTypes []string) ([]models.PricePoint, error) {
	var points []models.PricePoint

	if len(marketTypes) == 0 {
		query := fmt.Sprintf("SELECT * FROM %s ORDER BY market_type, jalali_date", s.table)
		if err := s.db.SelectContext(ctx, &points, query); err != nil {
			return nil, fmt.Errorf("failed to load prices: %w", err)
		}
		return points, nil
	}

	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT * FROM %s WHERE market_type IN (?) ORDER BY market_type, jalali_date", s.table),
		marketTypes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	if err := s.db.SelectContext(ctx, &points, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}
	return points, nil
}

// PriceHistory returns the most recent rows for one market, newest first.
func (s *Store) PriceHistory(ctx context.Context, marketType string, limit int) ([]models.PricePoint, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE market_type = ? ORDER BY jalali_date DESC", s.table)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var points []models.PricePoint
	if err := s.db.SelectContext(ctx, &points, query, marketType); err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	return points, nil
}

// LatestPrices returns the newest row per market. The zero-padded Jalali
// date format sorts chronologically as text.
func (s *Store) LatestPrices(ctx context.Context) ([]models.PricePoint, error) {
	query := fmt.Sprintf(`
		SELECT md.* FROM %[1]s md
		JOIN (
			SELECT market_type, MAX(jalali_date) AS jalali_date
			FROM %[1]s GROUP BY market_type
		) latest
		ON md.market_type = latest.market_type AND md.jalali_date = latest.jalali_date
		ORDER BY md.market_type`, s.table)

	var points []models.PricePoint
	if err := s.db.SelectContext(ctx, &points, query); err != nil {
		return nil, fmt.Errorf("failed to load latest prices: %w", err)
	}
	return points, nil
}

// CountByMarket returns row counts keyed by market type.
func (s *Store) CountByMarket(ctx context.Context) (map[string]int, error) {
	query := fmt.Sprintf("SELECT market_type, COUNT(*) AS n FROM %s GROUP BY market_type", s.table)

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var market string
		var n int
		if err := rows.Scan(&market, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[market] = n
	}
	return counts, rows.Err()
}

// InsertFetchBatch records a new pipeline run.
func (s *Store) InsertFetchBatch(ctx context.Context, batch *models.FetchBatch) error {
	const query = `
		INSERT INTO fetch_batches (id, created_at, status, point_count, market_count, metadata)
		VALUES (:id, :created_at, :status, :point_count, :market_count, :metadata)`

	if _, err := s.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("failed to insert fetch batch: %w", err)
	}
	return nil
}

// UpdateBatchStatus finalizes a batch record.
func (s *Store) UpdateBatchStatus(ctx context.Context, batchID, status string, processedAt *time.Time) error {
	const query = `
		UPDATE fetch_batches
		SET status = ?, processed_at = COALESCE(?, processed_at)
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, status, processedAt, batchID)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no batch found with ID %s", batchID)
	}
	return nil
}

// GetBatch retrieves a batch record, or nil when absent.
func (s *Store) GetBatch(ctx context.Context, batchID string) (*models.FetchBatch, error) {
	var batch models.FetchBatch
	err := s.db.GetContext(ctx, &batch, "SELECT * FROM fetch_batches WHERE id = ?", batchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &batch, nil
}

// InsertBatchStatistics stores the summary statistics for a batch.
func (s *Store) InsertBatchStatistics(ctx context.Context, stats *models.BatchStatistics) error {
	const query = `
		INSERT INTO batch_statistics (batch_id, mean_closing, median_closing, min_closing, max_closing, point_count, statistics_json)
		VALUES (:batch_id, :mean_closing, :median_closing, :min_closing, :max_closing, :point_count, :statistics_json)`

	if _, err := s.db.NamedExecContext(ctx, query, stats); err != nil {
		return fmt.Errorf("failed to insert batch statistics: %w", err)
	}
	return nil
}

// GetBatchStatistics retrieves statistics for a batch, or nil when absent.
func (s *Store) GetBatchStatistics(ctx context.Context, batchID string) (*models.BatchStatistics, error) {
	var stats models.BatchStatistics
	err := s.db.GetContext(ctx, &stats, "SELECT * FROM batch_statistics WHERE batch_id = ?", batchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get batch statistics: %w", err)
	}
	return &stats, nil
}

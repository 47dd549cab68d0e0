package pricestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/finbolt/ghb/internal/core"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ Provider = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS daily_bars (
	ticker TEXT NOT NULL,
	date   TEXT NOT NULL,
	open   REAL NOT NULL,
	high   REAL NOT NULL,
	low    REAL NOT NULL,
	close  REAL NOT NULL,
	volume INTEGER NOT NULL,
	PRIMARY KEY (ticker, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_bars_ticker ON daily_bars (ticker);
`

// SQLiteStore reads and writes daily bars in a SQLite database, the
// long-lived cache format for downloaded histories.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the bar database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("creating schema: %w", err))
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSeries upserts a ticker's bars.
func (s *SQLiteStore) SaveSeries(ctx context.Context, ticker string, series core.PriceSeries) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_bars (ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, date) DO UPDATE SET
			open = excluded.open, high = excluded.high,
			low = excluded.low, close = excluded.close,
			volume = excluded.volume`)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	defer stmt.Close()

	for _, p := range series {
		_, err := stmt.ExecContext(ctx, ticker, p.Date.Format("2006-01-02"),
			p.Open, p.High, p.Low, p.Close, p.Volume)
		if err != nil {
			return core.WrapError(core.ErrStoreFailed, fmt.Errorf("%s %s: %w", ticker, p.Date.Format("2006-01-02"), err))
		}
	}

	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

// History returns the full stored history for ticker, oldest first.
func (s *SQLiteStore) History(ctx context.Context, ticker string) (core.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM daily_bars WHERE ticker = ? ORDER BY date ASC`, ticker)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	var series core.PriceSeries
	for rows.Next() {
		var dateStr string
		var p core.PricePoint
		if err := rows.Scan(&dateStr, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("bad stored date %q: %w", dateStr, err))
		}
		p.Date = date.UTC()
		series = append(series, p)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	if len(series) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s: no bars stored", ticker))
	}
	return series, nil
}

// Tickers lists every ticker with stored bars.
func (s *SQLiteStore) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT ticker FROM daily_bars ORDER BY ticker`)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

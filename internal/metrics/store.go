package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeLayout keeps created_at fixed-width so text comparison orders by time.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Kind names the calculation a run performed.
type Kind string

const (
	KindRecipeCost    Kind = "recipe_cost"
	KindDayCost       Kind = "day_cost"
	KindMonthCost     Kind = "month_cost"
	KindMissingPrices Kind = "missing_prices"
	KindQuickCost     Kind = "quick_cost"
	KindSimulation    Kind = "simulation"
	KindComparison    Kind = "comparison"
	KindPriceImport   Kind = "price_import"
)

// Run records a single calculation.
type Run struct {
	RequestID    string // API request or chat update that triggered the run
	Kind         Kind
	Subject      string // recipe id, plan name or product id
	Duration     time.Duration
	WarningCount int
	TotalTRY     float64
	Timestamp    time.Time
}

// Store handles persistence of calculation runs to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a run under a new UUID and returns it. A zero timestamp
// means now.
func (s *Store) Record(ctx context.Context, r Run) (string, error) {
	id := uuid.NewString()
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calculation_runs (id, request_id, kind, subject, duration_us, warning_count, total_try, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.RequestID, string(r.Kind), r.Subject, r.Duration.Microseconds(), r.WarningCount, r.TotalTRY,
		ts.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// DailySummary aggregates the runs of one calendar day (UTC) and kind.
type DailySummary struct {
	Date          string  `json:"date"`
	Kind          Kind    `json:"kind"`
	Runs          int     `json:"runs"`
	Warnings      int     `json:"warnings"`
	TotalTRY      float64 `json:"totalTRY"`
	AvgDurationMS float64 `json:"avgDurationMs"`
}

// GetDailySummary retrieves per-day, per-kind totals for the last N days,
// newest day first.
func (s *Store) GetDailySummary(ctx context.Context, days int) ([]DailySummary, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(created_at, 1, 10) AS day, kind, COUNT(*), SUM(warning_count), SUM(total_try), AVG(duration_us)
		 FROM calculation_runs
		 WHERE created_at >= ?
		 GROUP BY day, kind
		 ORDER BY day DESC, kind`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summary: %w", err)
	}
	defer rows.Close()

	results := []DailySummary{}
	for rows.Next() {
		var (
			d     DailySummary
			kind  string
			avgUS float64
		)
		if err := rows.Scan(&d.Date, &kind, &d.Runs, &d.Warnings, &d.TotalTRY, &avgUS); err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		d.Kind = Kind(kind)
		d.AvgDurationMS = avgUS / 1000
		results = append(results, d)
	}
	return results, rows.Err()
}

// Cleanup removes runs older than the specified number of days and returns
// how many were removed.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM calculation_runs WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up runs: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Package sqlite persists rebalancing results in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/internal/apperror"
)

const schema = `
CREATE TABLE IF NOT EXISTS rebalancing_results (
	id                     TEXT PRIMARY KEY,
	created_at             INTEGER NOT NULL,
	pair                   TEXT NOT NULL,
	mode                   TEXT NOT NULL,
	success                INTEGER NOT NULL,
	rebalance_count        INTEGER NOT NULL,
	net_savings            TEXT NOT NULL,
	annualized_net_savings TEXT NOT NULL,
	payload                TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rebalancing_results_created_at
	ON rebalancing_results (created_at DESC);
`

// Store is a ResultStore backed by SQLite. Full results are kept as JSON;
// the listing columns are denormalized beside them.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies the schema.
// path may be a file path or a "file:" URI such as "file:test?mode=memory".
func Open(ctx context.Context, path string) (*Store, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeStorageError, "create database directory")
		}
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStorageError, "open database")
	}
	// One connection keeps in-memory databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperror.Wrap(err, apperror.CodeStorageError, "ping database")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, apperror.Wrap(err, apperror.CodeStorageError, "apply schema")
	}

	return &Store{db: db, path: path}, nil
}

// Save inserts or replaces result. An empty ID is assigned a new UUID.
func (s *Store) Save(ctx context.Context, result *domain.RebalancingResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeStorageError, "encode result "+result.ID)
	}

	sum := result.Summary()
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rebalancing_results
			(id, created_at, pair, mode, success, rebalance_count, net_savings, annualized_net_savings, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID,
		sum.CreatedAt.UnixNano(),
		sum.Pair,
		string(sum.Mode),
		sum.Success,
		sum.RebalanceCount,
		sum.NetSavings.String(),
		sum.AnnualizedNetSavings.String(),
		string(payload),
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeStorageError, "save result "+result.ID)
	}
	return nil
}

// Get loads a result by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.RebalancingResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM rebalancing_results WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound(apperror.CodeResultNotFound, id)
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStorageError, "load result "+id)
	}

	var result domain.RebalancingResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStorageError, "decode result "+id)
	}
	return &result, nil
}

// List returns up to limit summaries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]domain.ResultSummary, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, pair, mode, success, rebalance_count, net_savings, annualized_net_savings
		FROM rebalancing_results
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStorageError, "list results")
	}
	defer rows.Close()

	var out []domain.ResultSummary
	for rows.Next() {
		var (
			sum               domain.ResultSummary
			createdAt         int64
			mode, net, annual string
		)
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Pair, &mode, &sum.Success, &sum.RebalanceCount, &net, &annual); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeStorageError, "scan result row")
		}
		sum.CreatedAt = time.Unix(0, createdAt).UTC()
		sum.Mode = domain.Mode(mode)
		if sum.NetSavings, err = decimal.NewFromString(net); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeStorageError, fmt.Sprintf("result %s net_savings", sum.ID))
		}
		if sum.AnnualizedNetSavings, err = decimal.NewFromString(annual); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeStorageError, fmt.Sprintf("result %s annualized_net_savings", sum.ID))
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeStorageError, "list results")
	}
	return out, nil
}

// Delete removes a result by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rebalancing_results WHERE id = ?`, id)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeStorageError, "delete result "+id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperror.NotFound(apperror.CodeResultNotFound, id)
	}
	return nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

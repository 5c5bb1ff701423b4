// Package cases reads court decisions from the back-office case database.
//
// The cases table is owned by the ingestion pipeline, not by this service;
// this package only pages through it during indexing and never writes.
package cases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SourceSupremeCourt is the source value identifying Indonesian Supreme
// Court decisions in the shared cases table.
const SourceSupremeCourt = "Indonesia Supreme Court"

// Case is a court decision row. Summary fields are nullable in the
// database; empty string means absent.
type Case struct {
	ID                 string
	Source             string
	DecisionNumber     string
	Summary            string
	SummaryEN          string
	SummaryFormatted   string
	SummaryFormattedEN string
}

// Store pages indexable cases out of the case database.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store on an existing connection pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// ListIndexable returns a page of Supreme Court cases that have a formatted
// English summary, the marker the ingestion pipeline sets once a case is
// fully processed. Pages are stable as long as the table is not mutated
// mid-index, which ingestion schedules around.
func (s *Store) ListIndexable(ctx context.Context, offset, limit int) ([]Case, error) {
	const query = `
		SELECT id, source, decision_number,
		       COALESCE(summary, ''),
		       COALESCE(summary_en, ''),
		       COALESCE(summary_formatted, ''),
		       COALESCE(summary_formatted_en, '')
		FROM cases
		WHERE summary_formatted_en IS NOT NULL
		  AND source = $1
		ORDER BY id
		OFFSET $2
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, SourceSupremeCourt, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cases (offset=%d limit=%d): %w", offset, limit, err)
	}
	defer rows.Close()

	var result []Case
	for rows.Next() {
		var c Case
		if err := rows.Scan(&c.ID, &c.Source, &c.DecisionNumber,
			&c.Summary, &c.SummaryEN, &c.SummaryFormatted, &c.SummaryFormattedEN); err != nil {
			return nil, fmt.Errorf("scanning case row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading case rows: %w", err)
	}

	s.logger.Debug("listed indexable cases", "offset", offset, "limit", limit, "count", len(result))
	return result, nil
}

// CountIndexable returns how many cases qualify for indexing. Used for
// progress reporting before a full index run.
func (s *Store) CountIndexable(ctx context.Context) (int64, error) {
	const query = `
		SELECT count(*)
		FROM cases
		WHERE summary_formatted_en IS NOT NULL
		  AND source = $1`

	var count int64
	if err := s.pool.QueryRow(ctx, query, SourceSupremeCourt).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting indexable cases: %w", err)
	}
	return count, nil
}

// GetByDecisionNumber looks up a single case. Returns pgx.ErrNoRows when
// the decision number is unknown.
func (s *Store) GetByDecisionNumber(ctx context.Context, decisionNumber string) (Case, error) {
	const query = `
		SELECT id, source, decision_number,
		       COALESCE(summary, ''),
		       COALESCE(summary_en, ''),
		       COALESCE(summary_formatted, ''),
		       COALESCE(summary_formatted_en, '')
		FROM cases
		WHERE decision_number = $1 AND source = $2`

	var c Case
	err := s.pool.QueryRow(ctx, query, decisionNumber, SourceSupremeCourt).Scan(
		&c.ID, &c.Source, &c.DecisionNumber,
		&c.Summary, &c.SummaryEN, &c.SummaryFormatted, &c.SummaryFormattedEN)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Case{}, fmt.Errorf("case %q: %w", decisionNumber, pgx.ErrNoRows)
		}
		return Case{}, fmt.Errorf("querying case %q: %w", decisionNumber, err)
	}
	return c, nil
}

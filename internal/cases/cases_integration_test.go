//go:build integration

package cases

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/lexicon-id/putusan/internal/log"
	"github.com/lexicon-id/putusan/internal/testutil"
)

// The cases table belongs to the ingestion pipeline; tests create a
// minimal replica of its schema and seed it directly.
const casesFixtureSchema = `
	CREATE TABLE cases (
		id                   TEXT PRIMARY KEY,
		source               TEXT NOT NULL,
		decision_number      TEXT NOT NULL,
		summary              TEXT,
		summary_en           TEXT,
		summary_formatted    TEXT,
		summary_formatted_en TEXT
	)`

func setupCasesStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	if _, err := db.Pool.Exec(ctx, casesFixtureSchema); err != nil {
		t.Fatalf("creating cases fixture schema: %v", err)
	}

	seed := [][]any{
		{"1", SourceSupremeCourt, "100/Pdt.G/2023", "ringkasan", "summary", "ringkasan format", "formatted summary"},
		{"2", SourceSupremeCourt, "200/K/2022", "ringkasan", "summary", "ringkasan format", "formatted summary"},
		// Not yet processed: no English formatted summary.
		{"3", SourceSupremeCourt, "300/K/2021", "ringkasan", nil, nil, nil},
		// Different source, never indexable.
		{"4", "District Court", "400/Pdt/2020", "ringkasan", "summary", "ringkasan format", "formatted summary"},
	}
	for _, row := range seed {
		_, err := db.Pool.Exec(ctx,
			`INSERT INTO cases (id, source, decision_number, summary, summary_en, summary_formatted, summary_formatted_en)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`, row...)
		if err != nil {
			t.Fatalf("seeding cases: %v", err)
		}
	}

	return New(db.Pool, log.NewNop()), ctx
}

func TestListIndexable(t *testing.T) {
	store, ctx := setupCasesStore(t)

	cases, err := store.ListIndexable(ctx, 0, 10)
	if err != nil {
		t.Fatalf("ListIndexable() error = %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("len(cases) = %d, want 2", len(cases))
	}
	if cases[0].DecisionNumber != "100/Pdt.G/2023" {
		t.Errorf("first case = %q, want %q", cases[0].DecisionNumber, "100/Pdt.G/2023")
	}
	if cases[0].SummaryFormatted == "" {
		t.Error("SummaryFormatted should be populated")
	}
}

func TestListIndexable_Paging(t *testing.T) {
	store, ctx := setupCasesStore(t)

	page1, err := store.ListIndexable(ctx, 0, 1)
	if err != nil {
		t.Fatalf("ListIndexable(0,1) error = %v", err)
	}
	page2, err := store.ListIndexable(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ListIndexable(1,1) error = %v", err)
	}
	if len(page1) != 1 || len(page2) != 1 {
		t.Fatalf("page sizes = %d, %d, want 1, 1", len(page1), len(page2))
	}
	if page1[0].ID == page2[0].ID {
		t.Error("pages overlap")
	}
}

func TestCountIndexable(t *testing.T) {
	store, ctx := setupCasesStore(t)

	count, err := store.CountIndexable(ctx)
	if err != nil {
		t.Fatalf("CountIndexable() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountIndexable() = %d, want 2", count)
	}
}

func TestGetByDecisionNumber(t *testing.T) {
	store, ctx := setupCasesStore(t)

	c, err := store.GetByDecisionNumber(ctx, "100/Pdt.G/2023")
	if err != nil {
		t.Fatalf("GetByDecisionNumber() error = %v", err)
	}
	if c.ID != "1" {
		t.Errorf("ID = %q, want %q", c.ID, "1")
	}

	_, err = store.GetByDecisionNumber(ctx, "does-not-exist")
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("error = %v, want pgx.ErrNoRows", err)
	}
}

//go:build integration

package knowledge

import (
	"context"
	"testing"

	"github.com/lexicon-id/putusan/internal/log"
	"github.com/lexicon-id/putusan/internal/testutil"
)

// basisEmbedder maps known texts onto sparse 3072-dimensional basis
// vectors so similarity ordering is fully deterministic.
func basisEmbedder() *stubEmbedder {
	return &stubEmbedder{
		vectors: map[string][]float32{
			"sengketa pajak penghasilan": basisVector(0),
			"perceraian dan hak asuh":    basisVector(1),
			"pajak":                      basisVector(0),
		},
		fallback: basisVector(2),
	}
}

func basisVector(i int) []float32 {
	v := make([]float32, VectorDimension)
	v[i] = 1
	return v
}

func setupPostgresStore(t *testing.T) (*PostgresStore, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	return NewPostgresStore(db.Pool, basisEmbedder(), log.NewNop()), context.Background()
}

func TestPostgresStore_AddAndSearch(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	docs := []Document{
		{
			ID:      "123/Pdt.G/2023-0",
			Content: "sengketa pajak penghasilan",
			Metadata: map[string]string{
				MetaDecisionNumber: "123/Pdt.G/2023",
				MetaFullSummary:    "Ringkasan lengkap sengketa pajak.",
			},
		},
		{
			ID:      "456/K/2022-0",
			Content: "perceraian dan hak asuh",
			Metadata: map[string]string{
				MetaDecisionNumber: "456/K/2022",
				MetaFullSummary:    "Ringkasan lengkap perceraian.",
			},
		},
	}
	if err := store.AddBatch(ctx, docs); err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}

	results, err := store.Search(ctx, "pajak", WithTopK(2))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if got := results[0].DecisionNumber(); got != "123/Pdt.G/2023" {
		t.Errorf("top result decision = %q, want %q", got, "123/Pdt.G/2023")
	}
	if results[0].Similarity <= results[1].Similarity {
		t.Errorf("results not ordered by similarity: %v >= %v wanted",
			results[0].Similarity, results[1].Similarity)
	}
	if got := results[0].FullSummary(); got != "Ringkasan lengkap sengketa pajak." {
		t.Errorf("FullSummary() = %q", got)
	}
}

func TestPostgresStore_SearchWithFilter(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	docs := []Document{
		{ID: "a-0", Content: "sengketa pajak penghasilan",
			Metadata: map[string]string{MetaDecisionNumber: "a"}},
		{ID: "b-0", Content: "perceraian dan hak asuh",
			Metadata: map[string]string{MetaDecisionNumber: "b"}},
	}
	if err := store.AddBatch(ctx, docs); err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}

	results, err := store.Search(ctx, "pajak",
		WithTopK(10),
		WithFilter(map[string]string{MetaDecisionNumber: "b"}))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if got := results[0].DecisionNumber(); got != "b" {
		t.Errorf("decision = %q, want %q", got, "b")
	}
}

func TestPostgresStore_UpsertReplaces(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	doc := Document{ID: "x-0", Content: "sengketa pajak penghasilan",
		Metadata: map[string]string{MetaDecisionNumber: "x"}}
	if err := store.Add(ctx, doc); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	doc.Content = "perceraian dan hak asuh"
	if err := store.Add(ctx, doc); err != nil {
		t.Fatalf("Add() again error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestPostgresStore_CountAndReset(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	docs := []Document{
		{ID: "a-0", Content: "sengketa pajak penghasilan",
			Metadata: map[string]string{MetaDecisionNumber: "a"}},
		{ID: "b-0", Content: "perceraian dan hak asuh",
			Metadata: map[string]string{MetaDecisionNumber: "b"}},
	}
	if err := store.AddBatch(ctx, docs); err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	count, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() after reset error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() after reset = %d, want 0", count)
	}
}

func TestPostgresStore_Ping(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

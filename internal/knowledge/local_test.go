package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/lexicon-id/putusan/internal/log"
)

// testEmbedder returns a stub where "pajak" (tax) documents and queries point
// one way and "pidana" (criminal) documents point another, so similarity
// ordering is deterministic.
func testEmbedder() *stubEmbedder {
	return &stubEmbedder{
		vectors: map[string][]float32{
			"sengketa pajak penghasilan": {1, 0, 0},
			"kasasi perkara pidana":      {0, 1, 0},
			"pajak":                      {0.9, 0.1, 0},
			"pidana":                     {0.1, 0.9, 0},
		},
		fallback: []float32{0, 0, 1},
	}
}

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), testEmbedder(), log.NewNop())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	return store
}

func seedDocs() []Document {
	return []Document{
		{
			ID:      "123/Pdt.G/2023-0",
			Content: "sengketa pajak penghasilan",
			Metadata: map[string]string{
				MetaDecisionNumber: "123/Pdt.G/2023",
				MetaFullSummary:    "Putusan lengkap tentang sengketa pajak penghasilan.",
			},
			CreateAt: time.Now(),
		},
		{
			ID:      "456/Pid.B/2023-0",
			Content: "kasasi perkara pidana",
			Metadata: map[string]string{
				MetaDecisionNumber: "456/Pid.B/2023",
				MetaFullSummary:    "Putusan lengkap tentang kasasi perkara pidana.",
			},
			CreateAt: time.Now(),
		},
	}
}

func TestLocalStore_AddAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, doc := range seedDocs() {
		if err := store.Add(ctx, doc); err != nil {
			t.Fatalf("Add(%q) error = %v", doc.ID, err)
		}
	}

	results, err := store.Search(ctx, "pajak", WithTopK(1))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	if got := results[0].DecisionNumber(); got != "123/Pdt.G/2023" {
		t.Errorf("top result decision = %q, want %q", got, "123/Pdt.G/2023")
	}
	if results[0].Similarity <= 0 {
		t.Errorf("Similarity = %f, want > 0", results[0].Similarity)
	}
}

func TestLocalStore_SearchClampsTopK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddBatch(ctx, seedDocs()); err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}

	// Requesting more results than stored documents must not error.
	results, err := store.Search(ctx, "pajak", WithTopK(10))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Search() returned %d results, want 2", len(results))
	}
}

func TestLocalStore_SearchEmptyStore(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "pajak")
	if err != nil {
		t.Fatalf("Search() on empty store error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() on empty store returned %d results, want 0", len(results))
	}
}

func TestLocalStore_SearchWithFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddBatch(ctx, seedDocs()); err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}

	results, err := store.Search(ctx, "pajak",
		WithTopK(10),
		WithFilter(MetaDecisionNumber, "456/Pid.B/2023"))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	if got := results[0].DecisionNumber(); got != "456/Pid.B/2023" {
		t.Errorf("filtered result decision = %q, want %q", got, "456/Pid.B/2023")
	}
}

func TestLocalStore_CountAndReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddBatch(ctx, seedDocs()); err != nil {
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
		t.Fatalf("Count() after Reset error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() after Reset = %d, want 0", count)
	}

	// Store stays usable after a reset.
	if err := store.Add(ctx, seedDocs()[0]); err != nil {
		t.Errorf("Add() after Reset error = %v", err)
	}
}

func TestLocalStore_AddReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := seedDocs()[0]
	if err := store.Add(ctx, doc); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.Add(ctx, doc); err != nil {
		t.Fatalf("re-Add() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() after re-add = %d, want 1", count)
	}
}

func TestLocalStore_Ping(t *testing.T) {
	store := newTestStore(t)

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v, want nil", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Ping(cancelled); err == nil {
		t.Error("Ping() with cancelled context = nil, want error")
	}
}

func TestLocalStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewLocalStore(dir, testEmbedder(), log.NewNop())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	if err := store.AddBatch(ctx, seedDocs()); err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewLocalStore(dir, testEmbedder(), log.NewNop())
	if err != nil {
		t.Fatalf("reopening store error = %v", err)
	}
	count, err := reopened.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() after reopen = %d, want 2", count)
	}
}

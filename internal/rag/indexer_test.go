package rag

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lexicon-id/putusan/internal/cases"
	"github.com/lexicon-id/putusan/internal/knowledge"
	"github.com/lexicon-id/putusan/internal/log"
)

// fakeCaseLister serves cases in pages from a fixed slice.
type fakeCaseLister struct {
	cases []cases.Case
	err   error
}

func (f *fakeCaseLister) ListIndexable(_ context.Context, offset, limit int) ([]cases.Case, error) {
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.cases) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.cases) {
		end = len(f.cases)
	}
	return f.cases[offset:end], nil
}

// fakeIndexerStore records writes.
type fakeIndexerStore struct {
	mu       sync.Mutex
	resets   int
	docs     []knowledge.Document
	addErr   error
	resetErr error
}

func (f *fakeIndexerStore) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.docs = nil
	return f.resetErr
}

func (f *fakeIndexerStore) AddBatch(_ context.Context, docs []knowledge.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.docs = append(f.docs, docs...)
	return nil
}

// countingGate counts acquisitions of the write gate.
type countingGate struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (g *countingGate) BeginWrite() func() {
	g.mu.Lock()
	g.acquired++
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.released++
		g.mu.Unlock()
	}
}

func testCases() []cases.Case {
	return []cases.Case{
		{DecisionNumber: "123/Pdt.G/2023", SummaryFormatted: "Ringkasan sengketa pajak penghasilan badan tahun 2023."},
		{DecisionNumber: "456/Pid.B/2023", SummaryFormatted: "Ringkasan kasasi perkara pidana penipuan."},
		{DecisionNumber: "789/K/2022", SummaryFormatted: ""}, // not yet formatted
	}
}

func TestIndexer_Run(t *testing.T) {
	lister := &fakeCaseLister{cases: testCases()}
	store := &fakeIndexerStore{}
	indexer := NewIndexer(lister, store, NewSplitter(500, 100), nil, log.NewNop())

	result, err := indexer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if store.resets != 1 {
		t.Errorf("store resets = %d, want 1", store.resets)
	}
	if result.CasesIndexed != 2 {
		t.Errorf("CasesIndexed = %d, want 2", result.CasesIndexed)
	}
	if result.CasesSkipped != 1 {
		t.Errorf("CasesSkipped = %d, want 1", result.CasesSkipped)
	}
	if result.ChunksAdded != len(store.docs) {
		t.Errorf("ChunksAdded = %d, stored %d docs", result.ChunksAdded, len(store.docs))
	}
	if result.ChunksAdded < 2 {
		t.Errorf("ChunksAdded = %d, want >= 2", result.ChunksAdded)
	}
}

func TestIndexer_DocumentMetadata(t *testing.T) {
	lister := &fakeCaseLister{cases: testCases()[:1]}
	store := &fakeIndexerStore{}
	indexer := NewIndexer(lister, store, NewSplitter(500, 100), nil, log.NewNop())

	if _, err := indexer.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(store.docs) == 0 {
		t.Fatal("no documents stored")
	}

	doc := store.docs[0]
	if doc.ID != "123/Pdt.G/2023-0" {
		t.Errorf("doc.ID = %q, want %q", doc.ID, "123/Pdt.G/2023-0")
	}
	if got := doc.Metadata[knowledge.MetaDecisionNumber]; got != "123/Pdt.G/2023" {
		t.Errorf("decision_number metadata = %q, want %q", got, "123/Pdt.G/2023")
	}
	if got := doc.Metadata[knowledge.MetaFullSummary]; got != testCases()[0].SummaryFormatted {
		t.Errorf("full_summary metadata = %q, want the complete summary", got)
	}
}

func TestIndexer_UsesWriteGate(t *testing.T) {
	lister := &fakeCaseLister{cases: testCases()}
	store := &fakeIndexerStore{}
	gate := &countingGate{}
	indexer := NewIndexer(lister, store, NewSplitter(500, 100), gate, log.NewNop())

	if _, err := indexer.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// One acquisition for the reset plus one per indexed case.
	if gate.acquired != 3 {
		t.Errorf("gate acquired %d times, want 3", gate.acquired)
	}
	if gate.released != gate.acquired {
		t.Errorf("gate released %d times, acquired %d; must balance", gate.released, gate.acquired)
	}
}

func TestIndexer_ListError(t *testing.T) {
	lister := &fakeCaseLister{err: errors.New("database unreachable")}
	indexer := NewIndexer(lister, &fakeIndexerStore{}, NewSplitter(500, 100), nil, log.NewNop())

	if _, err := indexer.Run(context.Background()); err == nil {
		t.Error("Run() = nil error, want list failure")
	}
}

func TestIndexer_AddError(t *testing.T) {
	lister := &fakeCaseLister{cases: testCases()[:1]}
	store := &fakeIndexerStore{addErr: errors.New("embedding service down")}
	indexer := NewIndexer(lister, store, NewSplitter(500, 100), nil, log.NewNop())

	if _, err := indexer.Run(context.Background()); err == nil {
		t.Error("Run() = nil error, want add failure")
	}
}

func TestIndexer_CancelledContext(t *testing.T) {
	lister := &fakeCaseLister{cases: testCases()}
	store := &fakeIndexerStore{}
	indexer := NewIndexer(lister, store, NewSplitter(500, 100), nil, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := indexer.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

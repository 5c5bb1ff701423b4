package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexicon-id/putusan/internal/cases"
	"github.com/lexicon-id/putusan/internal/knowledge"
)

// DefaultPageSize is how many cases are read from the case database per
// page during indexing. Embedding dominates the run time, so pages stay
// small to keep progress reporting responsive.
const DefaultPageSize = 5

// CaseLister pages indexable cases out of the case database.
type CaseLister interface {
	ListIndexable(ctx context.Context, offset, limit int) ([]cases.Case, error)
}

// IndexerStore is the subset of the vector store the Indexer needs.
type IndexerStore interface {
	Reset(ctx context.Context) error
	AddBatch(ctx context.Context, docs []knowledge.Document) error
}

// WriteGate serializes vector store writes against backup snapshots.
// BeginWrite blocks while a snapshot is in progress and returns the
// function that releases the gate. A nil gate disables coordination.
type WriteGate interface {
	BeginWrite() (done func())
}

// IndexResult summarizes an indexing run.
type IndexResult struct {
	CasesIndexed int
	CasesSkipped int
	ChunksAdded  int
	Duration     time.Duration
}

// Indexer rebuilds the vector store from the case database.
type Indexer struct {
	cases    CaseLister
	store    IndexerStore
	splitter *Splitter
	gate     WriteGate
	pageSize int
	logger   *slog.Logger
}

// NewIndexer creates an Indexer. gate may be nil when no backup coordinator
// runs (the index CLI without a serving process).
func NewIndexer(lister CaseLister, store IndexerStore, splitter *Splitter, gate WriteGate, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		cases:    lister,
		store:    store,
		splitter: splitter,
		gate:     gate,
		pageSize: DefaultPageSize,
		logger:   logger,
	}
}

// Run performs a full re-index: the collection is cleared and every
// indexable case is split and re-embedded. Cases without a formatted
// summary are skipped and counted, not failed.
func (i *Indexer) Run(ctx context.Context) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{}

	i.logger.Info("starting full re-index")

	if err := i.resetStore(ctx); err != nil {
		return nil, err
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("indexing interrupted: %w", err)
		}

		page, err := i.cases.ListIndexable(ctx, offset, i.pageSize)
		if err != nil {
			return nil, fmt.Errorf("listing cases at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		for _, c := range page {
			added, err := i.indexCase(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("indexing case %q: %w", c.DecisionNumber, err)
			}
			if added == 0 {
				result.CasesSkipped++
				continue
			}
			result.CasesIndexed++
			result.ChunksAdded += added
		}

		offset += i.pageSize
		i.logger.Info("indexing progress",
			"cases_indexed", result.CasesIndexed,
			"chunks_added", result.ChunksAdded,
			"offset", offset)
	}

	result.Duration = time.Since(start)
	i.logger.Info("re-index completed",
		"cases_indexed", result.CasesIndexed,
		"cases_skipped", result.CasesSkipped,
		"chunks_added", result.ChunksAdded,
		"duration", result.Duration.String())
	return result, nil
}

func (i *Indexer) resetStore(ctx context.Context) error {
	if i.gate != nil {
		done := i.gate.BeginWrite()
		defer done()
	}
	if err := i.store.Reset(ctx); err != nil {
		return fmt.Errorf("clearing old index: %w", err)
	}
	return nil
}

// indexCase splits one case summary and writes its chunks. Returns the
// number of chunks added; 0 means the case had nothing to index.
func (i *Indexer) indexCase(ctx context.Context, c cases.Case) (int, error) {
	if c.SummaryFormatted == "" {
		i.logger.Warn("case has no formatted summary, skipping",
			"decision_number", c.DecisionNumber)
		return 0, nil
	}

	chunks := i.splitter.Split(c.SummaryFormatted)
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]knowledge.Document, 0, len(chunks))
	now := time.Now()
	for idx, chunk := range chunks {
		docs = append(docs, knowledge.Document{
			ID:      fmt.Sprintf("%s-%d", c.DecisionNumber, idx),
			Content: chunk,
			Metadata: map[string]string{
				knowledge.MetaDecisionNumber: c.DecisionNumber,
				knowledge.MetaFullSummary:    c.SummaryFormatted,
			},
			CreateAt: now,
		})
	}

	if i.gate != nil {
		done := i.gate.BeginWrite()
		defer done()
	}
	if err := i.store.AddBatch(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lexicon-id/putusan/internal/knowledge"
)

// DefaultTopK is the number of chunks fetched per retrieval before
// deduplication by decision number.
const DefaultTopK = 10

// SearchStore is the subset of the vector store the Retriever needs.
// Interfaces are defined by the consumer, not the provider.
type SearchStore interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// RetrievedCase is a court decision surfaced by a retrieval, carrying the
// full summary rather than the matched chunk.
type RetrievedCase struct {
	DecisionNumber string
	FullSummary    string
	Similarity     float32
}

// Retriever searches indexed case chunks and collapses them back into
// whole decisions.
type Retriever struct {
	store  SearchStore
	topK   int
	logger *slog.Logger
}

// NewRetriever creates a Retriever. topK <= 0 falls back to DefaultTopK.
func NewRetriever(store SearchStore, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, topK: topK, logger: logger}
}

// Retrieve searches for chunks similar to query and deduplicates hits by
// decision number, keeping the first (most similar) hit per decision.
// Ordering by descending similarity is preserved.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]RetrievedCase, error) {
	results, err := r.store.Search(ctx, query, knowledge.WithTopK(r.topK))
	if err != nil {
		return nil, fmt.Errorf("searching case chunks: %w", err)
	}

	seen := make(map[string]bool, len(results))
	var cases []RetrievedCase
	for _, res := range results {
		decisionNumber := res.DecisionNumber()
		if decisionNumber == "" || seen[decisionNumber] {
			continue
		}
		seen[decisionNumber] = true
		cases = append(cases, RetrievedCase{
			DecisionNumber: decisionNumber,
			FullSummary:    res.FullSummary(),
			Similarity:     res.Similarity,
		})
	}

	r.logger.Debug("retrieved cases",
		"query_length", len(query),
		"chunks", len(results),
		"unique_decisions", len(cases))
	return cases, nil
}

// FormatContext renders retrieved cases into the context block handed to the
// model. Each case is labeled with its decision number so the model can cite
// it, and cases are separated by blank lines.
func FormatContext(cases []RetrievedCase) string {
	blocks := make([]string, 0, len(cases))
	for _, c := range cases {
		blocks = append(blocks, fmt.Sprintf("Nomor Dokumen Putusan: %s\n\n%s", c.DecisionNumber, c.FullSummary))
	}
	return strings.Join(blocks, "\n\n")
}

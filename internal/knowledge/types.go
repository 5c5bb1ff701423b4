package knowledge

import "time"

// CollectionName is the vector collection holding indexed case chunks.
const CollectionName = "supreme_court_cases"

// VectorDimension is the embedding dimensionality of
// text-embedding-3-large. The pgvector column type depends on it.
const VectorDimension = 3072

// Metadata keys attached to every indexed chunk.
const (
	// MetaDecisionNumber identifies the court decision a chunk belongs to.
	// The retriever deduplicates results on this key.
	MetaDecisionNumber = "decision_number"

	// MetaFullSummary carries the complete case summary, so retrieval can
	// hand the generator full context even though search matches on chunks.
	MetaFullSummary = "full_summary"
)

// Document represents an indexed chunk of a case summary.
// Metadata must be map[string]string to comply with chromem-go requirements.
type Document struct {
	ID       string            // Unique identifier (decision number + chunk index)
	Content  string            // Chunk text content
	Metadata map[string]string // decision_number, full_summary
	CreateAt time.Time         // Indexing timestamp
}

// Result represents a single search result with similarity score.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity score (0-1)
}

// DecisionNumber returns the decision number from the result metadata,
// or "" when absent.
func (r Result) DecisionNumber() string {
	return r.Document.Metadata[MetaDecisionNumber]
}

// FullSummary returns the stored case summary, falling back to the chunk
// content when the metadata is missing (documents indexed by older builds).
func (r Result) FullSummary() string {
	if s := r.Document.Metadata[MetaFullSummary]; s != "" {
		return s
	}
	return r.Document.Content
}

// SearchOption configures search behavior using the functional options
// pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK    int
	filter  map[string]string
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return.
// Default is 10 if not specified.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithFilter adds a metadata filter to restrict search results.
// Multiple calls to WithFilter add additional filters (AND logic).
// Example: WithFilter("decision_number", "123/Pdt.G/2023")
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout overrides the per-search timeout.
// Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    10,
		filter:  nil,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

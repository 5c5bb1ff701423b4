package knowledge

import "context"

// Store is the vector store used by the indexer, the retriever and the
// readiness probe. Implementations must be safe for concurrent use by
// multiple goroutines.
//
// Writers (Add, AddBatch, Reset) are expected to run behind the backup
// coordinator's write gate; the Store itself does not coordinate with
// snapshots.
type Store interface {
	// Add embeds and stores a single document. Re-adding an existing ID
	// replaces the stored document.
	Add(ctx context.Context, doc Document) error

	// AddBatch embeds and stores a batch of documents. Implementations may
	// parallelize embedding; a failed document fails the whole batch.
	AddBatch(ctx context.Context, docs []Document) error

	// Search returns the documents most similar to query, ordered by
	// descending similarity.
	Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Reset drops all stored documents and recreates the collection.
	// The indexer calls this before a full re-index.
	Reset(ctx context.Context) error

	// Ping reports whether the backing storage is reachable. Used by the
	// readiness probe; must respect ctx cancellation.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

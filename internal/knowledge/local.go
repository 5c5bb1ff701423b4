package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"
)

// LocalStore is a Store backed by an embedded chromem-go database persisted
// under a directory. It is the default backend: no external vector service
// is needed, and the on-disk directory is what the backup coordinator
// archives.
//
// LocalStore is safe for concurrent use by multiple goroutines.
type LocalStore struct {
	db     *chromem.DB
	path   string
	embed  chromem.EmbeddingFunc
	logger *slog.Logger

	mu         sync.RWMutex // guards collection, which Reset swaps
	collection *chromem.Collection
}

// NewLocalStore opens (or creates) the persistent database at path and
// ensures the case collection exists.
func NewLocalStore(path string, embedder ai.Embedder, logger *slog.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store at %q: %w", path, err)
	}

	embed := NewEmbeddingFunc(embedder)
	collection, err := db.GetOrCreateCollection(CollectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", CollectionName, err)
	}

	logger.Debug("opened local vector store",
		"path", path,
		"collection", CollectionName,
		"documents", collection.Count())

	return &LocalStore{
		db:         db,
		path:       path,
		embed:      embed,
		logger:     logger,
		collection: collection,
	}, nil
}

// Path returns the on-disk location of the store. The backup coordinator
// archives this directory.
func (s *LocalStore) Path() string { return s.path }

// Add embeds and stores a single document.
func (s *LocalStore) Add(ctx context.Context, doc Document) error {
	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	err := collection.AddDocument(ctx, chromem.Document{
		ID:       doc.ID,
		Content:  doc.Content,
		Metadata: doc.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to add document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// AddBatch embeds and stores a batch of documents, parallelizing embedding
// across CPUs the way chromem-go recommends.
func (s *LocalStore) AddBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	converted := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		converted = append(converted, chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
	}

	if err := collection.AddDocuments(ctx, converted, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add %d documents: %w", len(docs), err)
	}
	return nil
}

// Search performs semantic search over the stored chunks.
func (s *LocalStore) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	s.mu.RLock()
	collection := s.collection
	s.mu.RUnlock()

	// chromem-go rejects nResults larger than the collection, so clamp.
	n := cfg.topK
	if count := collection.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	rows, err := collection.Query(queryCtx, query, n, cfg.filter, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Document: Document{
				ID:       row.ID,
				Content:  row.Content,
				Metadata: row.Metadata,
			},
			Similarity: row.Similarity,
		})
	}
	return results, nil
}

// Count returns the number of stored documents.
func (s *LocalStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Count(), nil
}

// Reset drops the collection and recreates it empty. The indexer calls this
// before a full re-index, mirroring a recreate-collection bootstrap.
func (s *LocalStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(CollectionName); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", CollectionName, err)
	}

	collection, err := s.db.GetOrCreateCollection(CollectionName, nil, s.embed)
	if err != nil {
		return fmt.Errorf("failed to recreate collection %q: %w", CollectionName, err)
	}
	s.collection = collection

	s.logger.Info("reset vector store collection", "collection", CollectionName)
	return nil
}

// Ping verifies the store directory is still accessible. The embedded
// database has no connection to check, so reachability of the backing
// directory is the readiness signal.
func (s *LocalStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("vector store path inaccessible: %w", err)
	}
	return nil
}

// Close releases the store. chromem-go persists on every write, so there is
// nothing to flush.
func (*LocalStore) Close() error { return nil }

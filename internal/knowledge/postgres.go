package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore is a Store backed by PostgreSQL with the pgvector extension.
// It shares the connection pool with the case database, so deployments that
// already run PostgreSQL need no second storage system.
//
// The documents table is created by the embedded migrations (see the db
// package). PostgresStore is safe for concurrent use by multiple goroutines.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewPostgresStore creates a PostgresStore on an existing pool. The pool's
// connections must have pgvector types registered (database.NewPool does
// this).
func NewPostgresStore(pool *pgxpool.Pool, embedder ai.Embedder, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		pool:     pool,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds and stores a single document.
// Uses UPSERT (ON CONFLICT DO UPDATE) to handle both inserts and updates.
func (s *PostgresStore) Add(ctx context.Context, doc Document) error {
	vector, err := embedText(ctx, s.embedder, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	createdAt := pgtype.Timestamptz{
		Time:  doc.CreateAt,
		Valid: !doc.CreateAt.IsZero(),
	}

	const upsert = `
		INSERT INTO documents (id, content, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`

	embedding := pgvector.NewVector(vector)
	if _, err := s.pool.Exec(ctx, upsert, doc.ID, doc.Content, embedding, metadataJSON, createdAt); err != nil {
		return fmt.Errorf("failed to upsert document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// AddBatch stores a batch of documents. Documents are embedded one at a time;
// the embedding API is the bottleneck, not the inserts.
func (s *PostgresStore) AddBatch(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		if err := s.Add(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// Search performs semantic search using cosine distance, ordered by
// descending similarity.
//
// SECURITY NOTE (SQL injection prevention): the metadata filter is always
// serialized with json.Marshal and passed as a query parameter to the JSONB
// @> operator. Never interpolate filter values into the SQL text.
func (s *PostgresStore) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vector, err := embedText(queryCtx, s.embedder, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	queryEmbedding := pgvector.NewVector(vector)

	var rows pgx.Rows
	if len(cfg.filter) > 0 {
		filterJSON, marshalErr := json.Marshal(cfg.filter)
		if marshalErr != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", marshalErr)
		}
		const search = `
			SELECT id, content, metadata, created_at,
			       1 - (embedding <=> $1) AS similarity
			FROM documents
			WHERE metadata @> $2
			ORDER BY embedding <=> $1
			LIMIT $3`
		rows, err = s.pool.Query(queryCtx, search, queryEmbedding, filterJSON, cfg.topK)
	} else {
		const search = `
			SELECT id, content, metadata, created_at,
			       1 - (embedding <=> $1) AS similarity
			FROM documents
			ORDER BY embedding <=> $1
			LIMIT $2`
		rows, err = s.pool.Query(queryCtx, search, queryEmbedding, cfg.topK)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			doc          Document
			metadataJSON []byte
			createdAt    pgtype.Timestamptz
			similarity   float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &createdAt, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}

		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", doc.ID, "error", err)
			doc.Metadata = make(map[string]string)
		}
		if createdAt.Valid {
			doc.CreateAt = createdAt.Time
		}

		results = append(results, Result{
			Document:   doc,
			Similarity: float32(similarity),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}
	return results, nil
}

// Count returns the number of stored documents.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}

	// Overflow protection for 32-bit systems
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// Reset removes all stored documents. The table and its index stay in place;
// only the rows go.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE documents`); err != nil {
		return fmt.Errorf("failed to truncate documents: %w", err)
	}
	s.logger.Info("reset vector store collection", "collection", CollectionName)
	return nil
}

// Ping verifies database connectivity for the readiness probe.
func (s *PostgresStore) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("vector store database unreachable: %w", err)
	}
	return nil
}

// Close closes the Store (no-op, connection pool managed externally).
func (*PostgresStore) Close() error { return nil }

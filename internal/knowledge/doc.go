// Package knowledge stores Supreme Court case document chunks with vector
// search capabilities.
//
// Two interchangeable backends implement the Store interface:
//
//   - LocalStore (local.go): embedded chromem-go database persisted to a
//     directory on disk. No external service required; this is the default
//     backend and the one the backup coordinator snapshots.
//   - PostgresStore (postgres.go): PostgreSQL with the pgvector extension,
//     for deployments that already run the case database and want a single
//     storage system.
//
// Both backends generate embeddings through a Genkit ai.Embedder and store
// chunk metadata (decision number, full case summary) alongside the vectors
// so the retriever can deduplicate and format citations without a second
// lookup.
package knowledge

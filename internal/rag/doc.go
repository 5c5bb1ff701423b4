// Package rag implements the retrieval pipeline over indexed Supreme Court
// case summaries.
//
// The Indexer pages processed cases out of the back-office database, splits
// each formatted summary into overlapping chunks and writes them to the
// vector store. The Retriever searches those chunks, deduplicates hits by
// decision number and formats the surviving cases into a context block for
// the agent.
package rag

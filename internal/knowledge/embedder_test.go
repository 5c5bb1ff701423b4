package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// stubEmbedder returns a fixed vector per input text, looked up from a map.
// Unknown texts get the fallback vector so tests control similarity ordering.
type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (e *stubEmbedder) Name() string { return "stub-embedder" }

func (e *stubEmbedder) Register(_ api.Registry) {
	// No-op for testing
}

func (e *stubEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		text := ""
		for _, part := range doc.Content {
			text += part.Text
		}
		vec, ok := e.vectors[text]
		if !ok {
			vec = e.fallback
		}
		embeddings[i] = &ai.Embedding{Embedding: vec}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// failingEmbedder always returns an error.
type failingEmbedder struct{}

func (e *failingEmbedder) Name() string              { return "failing-embedder" }
func (e *failingEmbedder) Register(_ api.Registry)   {}
func (e *failingEmbedder) Embed(_ context.Context, _ *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	return nil, errors.New("embedding service unavailable")
}

// emptyEmbedder returns a response with no embeddings.
type emptyEmbedder struct{}

func (e *emptyEmbedder) Name() string            { return "empty-embedder" }
func (e *emptyEmbedder) Register(_ api.Registry) {}
func (e *emptyEmbedder) Embed(_ context.Context, _ *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	return &ai.EmbedResponse{}, nil
}

func TestNewEmbeddingFunc(t *testing.T) {
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"test document": {0, 1, 2},
		},
		fallback: []float32{9, 9, 9},
	}
	embeddingFunc := NewEmbeddingFunc(embedder)

	embedding, err := embeddingFunc(context.Background(), "test document")
	if err != nil {
		t.Fatalf("NewEmbeddingFunc() error = %v", err)
	}

	want := []float32{0, 1, 2}
	if len(embedding) != len(want) {
		t.Fatalf("embedding dimension = %d, want %d", len(embedding), len(want))
	}
	for i, v := range want {
		if embedding[i] != v {
			t.Errorf("embedding[%d] = %f, want %f", i, embedding[i], v)
		}
	}
}

func TestNewEmbeddingFunc_EmbedError(t *testing.T) {
	embeddingFunc := NewEmbeddingFunc(&failingEmbedder{})
	if _, err := embeddingFunc(context.Background(), "test"); err == nil {
		t.Error("expected error from failing embedder, got nil")
	}
}

func TestNewEmbeddingFunc_EmptyResult(t *testing.T) {
	embeddingFunc := NewEmbeddingFunc(&emptyEmbedder{})
	if _, err := embeddingFunc(context.Background(), "test"); err == nil {
		t.Error("expected error for empty embeddings, got nil")
	}
}

func TestEmbedText_EmptyResult(t *testing.T) {
	if _, err := embedText(context.Background(), &emptyEmbedder{}, "test"); err == nil {
		t.Error("expected error for empty embeddings, got nil")
	}
}

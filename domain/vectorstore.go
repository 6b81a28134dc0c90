package domain

import "context"

// VectorStoreStats mirrors what the store reports about its index.
type VectorStoreStats struct {
	TotalVectors uint64 `json:"total_vectors"`
	Dimension    uint64 `json:"dimension"`
	Status       string `json:"status"`
}

// VectorStore defines the interface for the vector database collaborator.
// Init is a distinct fallible step performed once at process start; the
// store is never initialized lazily as a side effect of the first query.
type VectorStore interface {
	// Init creates the collection if it does not exist yet.
	Init(ctx context.Context) error
	// Upsert adds chunks (with embeddings attached) to the store.
	Upsert(ctx context.Context, chunks []Chunk) error
	// Search returns the k chunks most similar to the embedding.
	Search(ctx context.Context, embedding Embedding, k int) ([]SearchResult, error)
	// CountByHash reports how many stored chunks carry the given file hash.
	CountByHash(ctx context.Context, fileHash string) (uint64, error)
	// Stats describes the current state of the index.
	Stats(ctx context.Context) (VectorStoreStats, error)
}

package application

import (
	"context"
	"errors"
	"fmt"

	"solidity-audit-bot/domain"
)

// fakeEmbedder returns a fixed-size dummy vector per text.
type fakeEmbedder struct {
	calls int
	fail  bool
}

func (f *fakeEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([]domain.Embedding, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([]domain.Embedding, len(texts))
	for i := range texts {
		out[i] = domain.Embedding{1, 0, 0}
	}
	return out, nil
}

// fakeStore keeps chunks in memory, keyed by nothing fancy: Search returns
// the canned results, CountByHash scans stored chunks.
type fakeStore struct {
	chunks        []domain.Chunk
	searchResults []domain.SearchResult
	searchErr     error
	countErr      error
	upsertErr     error
}

func (f *fakeStore) Init(context.Context) error { return nil }

func (f *fakeStore) Upsert(_ context.Context, chunks []domain.Chunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeStore) Search(context.Context, domain.Embedding, int) ([]domain.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults, nil
}

func (f *fakeStore) CountByHash(_ context.Context, fileHash string) (uint64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	var n uint64
	for _, ch := range f.chunks {
		if ch.FileHash == fileHash {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Stats(context.Context) (domain.VectorStoreStats, error) {
	return domain.VectorStoreStats{
		TotalVectors: uint64(len(f.chunks)),
		Dimension:    3,
		Status:       "Green",
	}, nil
}

// fakeCompletion records the messages of each call and replies with a canned
// string.
type fakeCompletion struct {
	lastMessages []domain.Message
	reply        string
	err          error
	calls        int
}

func (f *fakeCompletion) Complete(_ context.Context, messages []domain.Message) (string, error) {
	f.calls++
	f.lastMessages = messages
	if f.err != nil {
		return "", f.err
	}
	if f.reply == "" {
		return fmt.Sprintf("reply %d", f.calls), nil
	}
	return f.reply, nil
}

func newTestIngestion(store *fakeStore, embedder *fakeEmbedder) *IngestionService {
	return NewIngestionService(domain.NewSolidityParser(), embedder, store, 1000, 200, 5)
}

package application

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"solidity-audit-bot/domain"
	"solidity-audit-bot/infrastructure/logging"
)

// storedFunctionCap bounds how many function names a chunk payload carries,
// keeping payload size in check. The full list stays on the IngestResult.
const storedFunctionCap = 10

// embedBatchSize bounds how many chunks are embedded and upserted per call.
const embedBatchSize = 100

// IngestionService is the chunking and deduplication pipeline. It splits
// contract text into overlapping chunks, attaches structural metadata and
// security tags, and inserts them into the vector store unless the file's
// content hash is already present.
type IngestionService struct {
	parser       domain.ContractParser
	embedder     domain.EmbeddingClient
	store        domain.VectorStore
	chunkSize    int
	chunkOverlap int
	topKDefault  int
	logger       *slog.Logger
}

// NewIngestionService creates the pipeline with the given collaborators and
// chunking configuration.
func NewIngestionService(parser domain.ContractParser, embedder domain.EmbeddingClient, store domain.VectorStore, chunkSize, chunkOverlap, topKDefault int) *IngestionService {
	return &IngestionService{
		parser:       parser,
		embedder:     embedder,
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		topKDefault:  topKDefault,
		logger:       logging.NewModuleLogger("ingestion", "service"),
	}
}

// FileHash returns the dedup key for a file's full text.
func (s *IngestionService) FileHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ProcessContract splits content into chunks with metadata attached but does
// not touch the store.
func (s *IngestionService) ProcessContract(filePath, content string) ([]domain.Chunk, domain.ContractMetadata, []domain.SecurityPatternTag) {
	meta := s.parser.ExtractMetadata(content)
	tags := s.parser.IdentifySecurityPatterns(content)
	hash := s.FileHash(content)

	storedMeta := meta
	if len(storedMeta.Functions) > storedFunctionCap {
		storedMeta.Functions = storedMeta.Functions[:storedFunctionCap]
	}

	pieces := SplitText(content, s.chunkSize, s.chunkOverlap)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			Content:     piece,
			FilePath:    filePath,
			FileHash:    hash,
			Index:       i,
			Total:       len(pieces),
			Metadata:    storedMeta,
			Patterns:    tags,
			ContentType: "solidity_contract",
		})
	}

	return chunks, meta, tags
}

// IngestContract runs the full pipeline for one file: parse, hash, dedup
// check, chunk, embed, upsert. Re-ingesting identical content is a no-op
// reported as "skipped"; modified content gets a new hash and a fresh insert
// while stale chunks of the previous version persist. The existence check
// and the insert are not atomic, so concurrent ingestion of the same file
// can race and produce duplicates — an accepted limitation.
func (s *IngestionService) IngestContract(ctx context.Context, filePath, content string) (domain.IngestResult, error) {
	hash := s.FileHash(content)

	existing, err := s.store.CountByHash(ctx, hash)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("dedup check failed: %w", err)
	}
	if existing > 0 {
		s.logger.Info("Contract already ingested, skipping",
			"file_path", filePath,
			"file_hash", hash,
		)
		return domain.IngestResult{
			FilePath: filePath,
			FileHash: hash,
			Action:   domain.ActionSkipped,
		}, nil
	}

	chunks, meta, tags := s.ProcessContract(filePath, content)
	if len(chunks) == 0 {
		return domain.IngestResult{}, fmt.Errorf("no chunks produced for %s", filePath)
	}

	s.logger.Info("Created chunks, generating embeddings",
		"file_path", filePath,
		"chunks", len(chunks),
	)

	for i := 0; i < len(chunks); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			texts[j-i] = chunks[j].Content
		}

		embeddings, err := s.embedder.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return domain.IngestResult{}, fmt.Errorf("embedding batch %d-%d failed: %w", i+1, end, err)
		}
		if len(embeddings) != len(texts) {
			return domain.IngestResult{}, fmt.Errorf("embedding count mismatch: %d texts, %d embeddings", len(texts), len(embeddings))
		}
		for j := range embeddings {
			chunks[i+j].Embedding = embeddings[j]
		}

		if err := s.store.Upsert(ctx, chunks[i:end]); err != nil {
			return domain.IngestResult{}, fmt.Errorf("upsert batch %d-%d failed: %w", i+1, end, err)
		}
	}

	s.logger.Info("Contract ingested",
		"file_path", filePath,
		"file_hash", hash,
		"chunks_added", len(chunks),
	)

	return domain.IngestResult{
		FilePath:    filePath,
		FileHash:    hash,
		Action:      domain.ActionIngested,
		ChunksAdded: len(chunks),
		Metadata:    meta,
		Patterns:    tags,
	}, nil
}

// BatchOutcome is the per-file result of a batch ingestion. A failed file
// carries its error message instead of aborting the rest of the batch.
type BatchOutcome struct {
	FilePath string               `json:"file_path"`
	Result   *domain.IngestResult `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// IngestBatch ingests files sequentially, collecting an outcome per file.
func (s *IngestionService) IngestBatch(ctx context.Context, files []domain.ContractFile) []BatchOutcome {
	outcomes := make([]BatchOutcome, 0, len(files))
	for _, f := range files {
		result, err := s.IngestContract(ctx, f.Path, f.Content)
		if err != nil {
			outcomes = append(outcomes, BatchOutcome{FilePath: f.Path, Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, BatchOutcome{FilePath: f.Path, Result: &result})
	}
	return outcomes
}

// Search embeds the query and returns the k most similar stored chunks.
// k falls back to the configured default when non-positive.
func (s *IngestionService) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = s.topKDefault
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("query embedding failed: empty response")
	}

	results, err := s.store.Search(ctx, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return results, nil
}

// Stats reports the vector store's view of the index.
func (s *IngestionService) Stats(ctx context.Context) (domain.VectorStoreStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return domain.VectorStoreStats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

package domain

// ContractMetadata is the structural summary of a Solidity source file,
// derived once at ingestion time and immutable afterwards. It is produced by
// pattern matching, not by parsing a formal grammar, so names appearing in
// comments or string literals can show up as false positives.
type ContractMetadata struct {
	Pragma    string   `json:"pragma,omitempty"`
	Imports   []string `json:"imports"`
	Contracts []string `json:"contracts"`
	Functions []string `json:"functions"`
	Modifiers []string `json:"modifiers"`
	Events    []string `json:"events"`
}

// SecurityPatternTag flags that a fixed keyword family was matched somewhere
// in the source. It carries no severity, location or explanation; semantic
// interpretation is left to the language model.
type SecurityPatternTag string

const (
	TagReentrancyGuard SecurityPatternTag = "reentrancy_guard"
	TagAccessControl   SecurityPatternTag = "access_control"
	TagSafeMath        SecurityPatternTag = "safe_math"
	TagExternalCalls   SecurityPatternTag = "external_calls"
	TagTimeDependency  SecurityPatternTag = "time_dependency"
	TagRandomness      SecurityPatternTag = "randomness"
	TagOverflowChecks  SecurityPatternTag = "overflow_checks"
)

// Chunk is a contiguous slice of a contract file prepared for the vector
// store. All chunks of a file share its content hash, which doubles as the
// deduplication key.
type Chunk struct {
	ID          string               `json:"id"`
	Content     string               `json:"content"`
	FilePath    string               `json:"file_path"`
	FileHash    string               `json:"file_hash"`
	Index       int                  `json:"chunk_index"`
	Total       int                  `json:"total_chunks"`
	Metadata    ContractMetadata     `json:"metadata"`
	Patterns    []SecurityPatternTag `json:"security_patterns"`
	Embedding   Embedding            `json:"embedding,omitempty"`
	ContentType string               `json:"content_type"`
}

// ContractFile is a named source file handed to the ingestion pipeline.
type ContractFile struct {
	Path    string `json:"file_path"`
	Content string `json:"content"`
}

// IngestResult reports what the pipeline did with a file. Action is
// "ingested" for a new content hash and "skipped" when the hash already
// exists in the store.
type IngestResult struct {
	FilePath    string               `json:"file_path"`
	FileHash    string               `json:"file_hash"`
	Action      string               `json:"action"`
	ChunksAdded int                  `json:"chunks_added"`
	Metadata    ContractMetadata     `json:"metadata"`
	Patterns    []SecurityPatternTag `json:"security_patterns"`
}

const (
	ActionIngested = "ingested"
	ActionSkipped  = "skipped"
)

// SearchResult is a retrieved chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

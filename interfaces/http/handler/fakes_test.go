package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"solidity-audit-bot/application"
	"solidity-audit-bot/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([]domain.Embedding, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([]domain.Embedding, len(texts))
	for i := range texts {
		out[i] = domain.Embedding{1, 0, 0}
	}
	return out, nil
}

type fakeStore struct {
	chunks        []domain.Chunk
	searchResults []domain.SearchResult
	statsErr      error
}

func (f *fakeStore) Init(context.Context) error { return nil }

func (f *fakeStore) Upsert(_ context.Context, chunks []domain.Chunk) error {
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeStore) Search(context.Context, domain.Embedding, int) ([]domain.SearchResult, error) {
	return f.searchResults, nil
}

func (f *fakeStore) CountByHash(_ context.Context, fileHash string) (uint64, error) {
	var n uint64
	for _, ch := range f.chunks {
		if ch.FileHash == fileHash {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Stats(context.Context) (domain.VectorStoreStats, error) {
	if f.statsErr != nil {
		return domain.VectorStoreStats{}, f.statsErr
	}
	return domain.VectorStoreStats{
		TotalVectors: uint64(len(f.chunks)),
		Dimension:    3,
		Status:       "Green",
	}, nil
}

type fakeCompletion struct {
	reply string
	err   error
}

func (f *fakeCompletion) Complete(context.Context, []domain.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// testEnv bundles the wired handlers and their collaborators so a test can
// both drive the router and inspect state afterwards.
type testEnv struct {
	router     *gin.Engine
	store      *fakeStore
	completion *fakeCompletion
	conv       *domain.Conversation
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := &fakeStore{}
	completion := &fakeCompletion{reply: "canned audit reply"}
	conv := domain.NewConversation()

	ingestion := application.NewIngestionService(domain.NewSolidityParser(), &fakeEmbedder{}, store, 1000, 200, 5)
	audit := application.NewAuditService(ingestion, completion, 5)

	auditHandler := NewAuditHandler(audit, conv)
	ingestHandler := NewIngestHandler(ingestion, nil, conv, 1024, []string{".sol", ".txt"})

	router := gin.New()
	router.GET("/health", ingestHandler.Health)
	v1 := router.Group("/api/v1")
	{
		v1.POST("/upload", ingestHandler.Upload)
		v1.POST("/ingest-address", ingestHandler.IngestAddress)
		v1.POST("/ingest-batch", ingestHandler.IngestBatch)
		v1.GET("/search", ingestHandler.Search)
		v1.GET("/stats", ingestHandler.Stats)
		v1.POST("/chat", auditHandler.Chat)
		v1.POST("/analyze", auditHandler.Analyze)
		v1.POST("/improvements", auditHandler.Improvements)
		v1.POST("/explain-vulnerability", auditHandler.ExplainVulnerability)
		v1.POST("/clear-conversation", auditHandler.ClearConversation)
	}

	return &testEnv{router: router, store: store, completion: completion, conv: conv}
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Timestamp string          `json:"timestamp"`
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return e.serve(t, req)
}

func (e *testEnv) get(t *testing.T, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return e.serve(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func (e *testEnv) uploadFile(t *testing.T, filename string, content []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.serve(t, req)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solidity-audit-bot/domain"
)

func newTestAudit(store *fakeStore, completion *fakeCompletion) *AuditService {
	return NewAuditService(newTestIngestion(store, &fakeEmbedder{}), completion, 5)
}

func TestAuditService_Chat(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store: no context, completion still runs", func(t *testing.T) {
		completion := &fakeCompletion{reply: "looks fine"}
		svc := newTestAudit(&fakeStore{}, completion)
		conv := domain.NewConversation()

		result, err := svc.Chat(ctx, conv, "is my contract safe?", true)
		require.NoError(t, err)

		assert.False(t, result.ContextUsed)
		assert.Equal(t, "looks fine", result.Response)
		assert.NotEmpty(t, result.Timestamp)

		// Base instructional template only: the system message is the bare
		// prompt, with no context block.
		require.Len(t, completion.lastMessages, 2)
		assert.Equal(t, domain.RoleSystem, completion.lastMessages[0].Role)
		assert.Equal(t, systemPrompt, completion.lastMessages[0].Content)
		assert.Equal(t, "is my contract safe?", completion.lastMessages[1].Content)
	})

	t.Run("history grows by exactly two per successful call", func(t *testing.T) {
		svc := newTestAudit(&fakeStore{}, &fakeCompletion{reply: "ok"})
		conv := domain.NewConversation()

		_, err := svc.Chat(ctx, conv, "first", false)
		require.NoError(t, err)
		assert.Equal(t, 2, conv.Len())

		_, err = svc.Chat(ctx, conv, "second", false)
		require.NoError(t, err)
		assert.Equal(t, 4, conv.Len())
	})

	t.Run("retrieved context is injected", func(t *testing.T) {
		store := &fakeStore{searchResults: []domain.SearchResult{
			{Chunk: domain.Chunk{
				Content:  "function withdraw() public { msg.sender.call(\"\"); }",
				FilePath: "Vault.sol",
				Metadata: domain.ContractMetadata{Contracts: []string{"Vault"}},
				Patterns: []domain.SecurityPatternTag{domain.TagExternalCalls},
			}, Score: 0.87},
		}}
		completion := &fakeCompletion{reply: "reentrancy risk"}
		svc := newTestAudit(store, completion)

		result, err := svc.Chat(ctx, domain.NewConversation(), "audit withdraw", true)
		require.NoError(t, err)

		assert.True(t, result.ContextUsed)
		system := completion.lastMessages[0].Content
		assert.Contains(t, system, "RELEVANT CONTRACT CONTEXT")
		assert.Contains(t, system, "Vault.sol")
		assert.Contains(t, system, "external_calls")
	})

	t.Run("template metacharacters in input and context survive verbatim", func(t *testing.T) {
		store := &fakeStore{searchResults: []domain.SearchResult{
			{Chunk: domain.Chunk{
				Content:  "mapping(bytes => uint) m; // {{.Injected}} {weird} }}",
				FilePath: "Odd.sol",
			}, Score: 0.5},
		}}
		completion := &fakeCompletion{reply: "noted"}
		svc := newTestAudit(store, completion)

		query := "what does {{.Secret}} mean in {braces}?"
		_, err := svc.Chat(ctx, domain.NewConversation(), query, true)
		require.NoError(t, err)

		system := completion.lastMessages[0].Content
		user := completion.lastMessages[1].Content
		assert.Contains(t, system, "{{.Injected}} {weird} }}")
		assert.Contains(t, user, "{{.Secret}}")
		assert.Contains(t, user, "{braces}")
	})

	t.Run("retrieval failure degrades to no context", func(t *testing.T) {
		store := &fakeStore{searchErr: errors.New("qdrant unreachable")}
		completion := &fakeCompletion{reply: "still answering"}
		svc := newTestAudit(store, completion)

		result, err := svc.Chat(ctx, domain.NewConversation(), "hello", true)
		require.NoError(t, err)
		assert.False(t, result.ContextUsed)
		assert.Equal(t, "still answering", result.Response)
	})

	t.Run("completion failure leaves history untouched", func(t *testing.T) {
		completion := &fakeCompletion{err: errors.New("model overloaded")}
		svc := newTestAudit(&fakeStore{}, completion)
		conv := domain.NewConversation()

		_, err := svc.Chat(ctx, conv, "hello", false)
		assert.ErrorContains(t, err, "chat failed")
		assert.Equal(t, 0, conv.Len())
	})

	t.Run("trailing window is carried into the request", func(t *testing.T) {
		completion := &fakeCompletion{reply: "ok"}
		svc := newTestAudit(&fakeStore{}, completion)

		conv := domain.NewConversation()
		for i := 0; i < 12; i++ {
			conv.Append(domain.RoleUser, fmt.Sprintf("old %d", i))
		}

		_, err := svc.Chat(ctx, conv, "newest", false)
		require.NoError(t, err)

		// 10 window messages plus system and user.
		require.Len(t, completion.lastMessages, 12)
		assert.Equal(t, "old 2", completion.lastMessages[0].Content)
		assert.Equal(t, "old 11", completion.lastMessages[9].Content)
		assert.Equal(t, domain.RoleSystem, completion.lastMessages[10].Role)
	})
}

func TestAuditService_AnalyzeContract(t *testing.T) {
	store := &fakeStore{}
	completion := &fakeCompletion{reply: "CRITICAL: reentrancy in withdraw"}
	svc := newTestAudit(store, completion)

	content := testContract
	result, err := svc.AnalyzeContract(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, "CRITICAL: reentrancy in withdraw", result.Analysis)
	assert.Len(t, result.ContractHash, 32)
	// The contract was ingested for retrieval before the completion ran.
	assert.NotEmpty(t, store.chunks)
	assert.Contains(t, completion.lastMessages[len(completion.lastMessages)-1].Content, "Perform a comprehensive security audit")
}

func TestAuditService_AnalyzeContract_TruncatesLongSource(t *testing.T) {
	completion := &fakeCompletion{reply: "ok"}
	svc := newTestAudit(&fakeStore{}, completion)

	long := strings.Repeat("x", 5000)
	_, err := svc.AnalyzeContract(context.Background(), long)
	require.NoError(t, err)

	for _, m := range completion.lastMessages {
		assert.NotContains(t, m.Content, strings.Repeat("x", 2500))
	}
}

func TestAuditService_SuggestImprovements(t *testing.T) {
	completion := &fakeCompletion{reply: "use checks-effects-interactions"}
	svc := newTestAudit(&fakeStore{}, completion)

	result, err := svc.SuggestImprovements(context.Background(), testContract)
	require.NoError(t, err)
	assert.Equal(t, "use checks-effects-interactions", result.Improvements)
	assert.NotEmpty(t, result.Timestamp)
}

func TestAuditService_ExplainVulnerability(t *testing.T) {
	completion := &fakeCompletion{reply: "reentrancy happens when..."}
	svc := newTestAudit(&fakeStore{}, completion)

	result, err := svc.ExplainVulnerability(context.Background(), "reentrancy")
	require.NoError(t, err)

	assert.Equal(t, "reentrancy", result.VulnerabilityType)
	assert.Equal(t, "reentrancy happens when...", result.Explanation)
	assert.Contains(t, completion.lastMessages[len(completion.lastMessages)-1].Content, "reentrancy")
}

package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solidity-audit-bot/domain"
)

const uploadContract = `pragma solidity ^0.8.0;

contract Token {
    mapping(address => uint256) public balances;

    function transfer(address to, uint256 amount) public {
        require(balances[msg.sender] >= amount, "insufficient");
        balances[msg.sender] -= amount;
        balances[to] += amount;
    }
}
`

func TestUpload(t *testing.T) {
	t.Run("accepts a solidity file", func(t *testing.T) {
		env := newTestEnv(t)

		w, resp := env.uploadFile(t, "Token.sol", []byte(uploadContract))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)

		var data struct {
			Message     string `json:"message"`
			FileHash    string `json:"file_hash"`
			ChunksAdded int    `json:"chunks_added"`
			Action      string `json:"action"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, domain.ActionIngested, data.Action)
		assert.Len(t, data.FileHash, 32)
		assert.Greater(t, data.ChunksAdded, 0)
		assert.NotEmpty(t, env.store.chunks)
	})

	t.Run("duplicate content is skipped", func(t *testing.T) {
		env := newTestEnv(t)

		_, first := env.uploadFile(t, "Token.sol", []byte(uploadContract))
		require.True(t, first.Success)

		w, resp := env.uploadFile(t, "Renamed.sol", []byte(uploadContract))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)

		var data struct {
			Action string `json:"action"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, domain.ActionSkipped, data.Action)
	})

	t.Run("rejects disallowed extension", func(t *testing.T) {
		env := newTestEnv(t)

		w, resp := env.uploadFile(t, "contract.pdf", []byte(uploadContract))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "Invalid file type")
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		env := newTestEnv(t) // 1KB limit

		w, resp := env.uploadFile(t, "big.sol", bytes.Repeat([]byte("a"), 2048))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.False(t, resp.Success)
	})

	t.Run("rejects binary content", func(t *testing.T) {
		env := newTestEnv(t)

		binary := append([]byte("contract A {"), 0x00, 0x01, 0x02)
		w, resp := env.uploadFile(t, "evil.sol", append(binary, bytes.Repeat([]byte{0}, 64)...))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, resp.Error, "UTF-8")
	})

	t.Run("rejects missing file field", func(t *testing.T) {
		env := newTestEnv(t)

		req, _ := http.NewRequest(http.MethodPost, "/api/v1/upload", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		w, resp := env.serve(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp.Success)
	})
}

func TestIngestAddress_Unconfigured(t *testing.T) {
	env := newTestEnv(t) // nil etherscan client

	w, resp := env.postJSON(t, "/api/v1/ingest-address", map[string]string{
		"address": "0x1234567890abcdef1234567890abcdef12345678",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, resp.Error, "ETHERSCAN_API_KEY")
}

func TestIngestBatch(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.postJSON(t, "/api/v1/ingest-batch", map[string]any{
		"contracts": []map[string]string{
			{"path": "A.sol", "content": uploadContract},
			{"path": "B.sol", "content": uploadContract + "\n// changed"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	var data struct {
		Count   int               `json:"count"`
		Results []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 2, data.Count)
	assert.Len(t, data.Results, 2)
}

func TestSearch(t *testing.T) {
	t.Run("rejects empty query", func(t *testing.T) {
		env := newTestEnv(t)

		w, resp := env.get(t, "/api/v1/search?query=%20%20")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, resp.Error, "Query cannot be empty")
	})

	t.Run("rejects malformed k", func(t *testing.T) {
		env := newTestEnv(t)

		w, _ := env.get(t, "/api/v1/search?query=reentrancy&k=abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns canned results", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.searchResults = []domain.SearchResult{
			{Chunk: domain.Chunk{FilePath: "Vault.sol", Content: "function withdraw()"}, Score: 0.9},
		}

		w, resp := env.get(t, "/api/v1/search?query=withdraw&k=3")
		require.Equal(t, http.StatusOK, w.Code)

		var data struct {
			Query   string                `json:"query"`
			Count   int                   `json:"count"`
			Results []domain.SearchResult `json:"results"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "withdraw", data.Query)
		assert.Equal(t, 1, data.Count)
		assert.Equal(t, "Vault.sol", data.Results[0].Chunk.FilePath)
	})
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.conv.Append(domain.RoleUser, "hello")
	env.conv.Append(domain.RoleAssistant, "hi")

	w, resp := env.get(t, "/api/v1/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Database     domain.VectorStoreStats    `json:"database"`
		Conversation domain.ConversationSummary `json:"conversation"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "Green", data.Database.Status)
	assert.Equal(t, 2, data.Conversation.MessageCount)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		env := newTestEnv(t)

		w, resp := env.get(t, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)
	})

	t.Run("unavailable when the store is down", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.statsErr = errors.New("connection refused")

		w, resp := env.get(t, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, resp.Error, "vector store unreachable")
	})
}

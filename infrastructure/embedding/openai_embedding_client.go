package embedding

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"solidity-audit-bot/domain"
)

// OpenAIEmbeddingClient implements the domain.EmbeddingClient interface
// using the OpenAI embeddings API.
type OpenAIEmbeddingClient struct {
	client *openai.Client
	model  openai.EmbeddingModel // e.g. text-embedding-ada-002
}

// NewOpenAIEmbeddingClient creates an embedding client for the given model.
func NewOpenAIEmbeddingClient(apiKey, model string) (*OpenAIEmbeddingClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is not set")
	}
	client := openai.NewClient(apiKey)
	return &OpenAIEmbeddingClient{
		client: client,
		model:  openai.EmbeddingModel(model),
	}, nil
}

// GenerateEmbeddings generates embeddings for the given texts in one call.
func (c *OpenAIEmbeddingClient) GenerateEmbeddings(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, err
	}

	embeddings := make([]domain.Embedding, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = domain.Embedding(data.Embedding)
	}

	return embeddings, nil
}

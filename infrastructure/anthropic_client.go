package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"solidity-audit-bot/domain"
)

// AnthropicClient implements the domain.CompletionClient interface on top of
// the Anthropic Messages API.
type AnthropicClient struct {
	client      *anthropic.Client
	temperature float64
	maxTokens   int
}

// NewAnthropicClient creates a completion client with the given API key and
// sampling parameters.
//
// Returns an error if the API key is empty.
func NewAnthropicClient(apiKey string, temperature float64, maxTokens int) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is not set")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicClient{
		client:      &client,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Complete sends the ordered conversation to the model and returns the text
// of its reply. Messages with the system role are lifted into the request's
// system blocks; everything else is passed through in order.
func (a *AnthropicClient) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	var system []anthropic.TextBlockParam
	conversation := []anthropic.MessageParam{}

	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case domain.RoleAssistant:
			conversation = append(conversation, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			conversation = append(conversation, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.ModelClaude3_7SonnetLatest,
		MaxTokens:   int64(a.maxTokens),
		Temperature: anthropic.Float(a.temperature),
		System:      system,
		Messages:    conversation,
	})
	if err != nil {
		return "", err
	}

	var reply strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			reply.WriteString(content.Text)
		}
	}

	return reply.String(), nil
}

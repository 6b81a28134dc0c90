package domain

import "context"

// CompletionClient defines the interface for the chat-completion
// collaborator. It takes an ordered list of role/content messages and
// returns the model's reply. No retries are built in; a failed call fails
// the single operation.
type CompletionClient interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

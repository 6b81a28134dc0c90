package application

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	// Offline BPE loader so counting never reaches out to the network.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter measures text in model tokens using the cl100k_base encoding.
// If the encoding cannot be loaded it degrades to a rune-based estimate so
// prompt assembly keeps working.
type TokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter returns a lazily-initialized counter.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

// Count returns the token count of text, or an estimate of one token per
// four runes when the encoding is unavailable.
func (c *TokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			c.encoding = enc
		}
	})

	if c.encoding == nil {
		return (len([]rune(text)) + 3) / 4
	}
	return len(c.encoding.Encode(text, nil, nil))
}

package chat

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	// Bundled BPE tables; no network fetch on first use.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter counts tokens with the cl100k_base encoding. When the
// encoding cannot be loaded it falls back to a characters/4 estimate so the
// context packer keeps working.
type TokenCounter struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

var (
	counterOnce sync.Once
	counter     *TokenCounter
)

// NewTokenCounter returns the shared counter instance.
func NewTokenCounter() *TokenCounter {
	counterOnce.Do(func() {
		counter = &TokenCounter{}
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			counter.enc = enc
		}
	})
	return counter
}

// Count returns the token count of text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc == nil {
		return len(text)/4 + 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.enc.Encode(text, nil, nil))
}

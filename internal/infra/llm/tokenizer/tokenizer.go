package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding covers the GPT-4 family and approximates most local models.
const DefaultEncoding = "cl100k_base"

// Counter counts BPE tokens with a tiktoken encoding.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// New loads the named encoding. Loading may download the BPE ranks on first
// use unless TIKTOKEN_CACHE_DIR points at a populated cache.
func New(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}
	return &Counter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

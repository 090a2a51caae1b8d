package manifold

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// TokenCounter estimates token count for a string.
// The default is TiktokenCounter; CharFallbackCounter needs no vocabulary files.
type TokenCounter interface {
	Count(text string) (int, error)
}

// CharFallbackCounter estimates tokens as runes/CharsPerToken.
// Zero value uses 4 chars per token (English average).
type CharFallbackCounter struct {
	CharsPerToken int
}

// Count returns estimated token count: ceil(rune_count / CharsPerToken).
// If CharsPerToken <= 0, uses 4.
func (c *CharFallbackCounter) Count(text string) (int, error) {
	cpt := c.CharsPerToken
	if cpt <= 0 {
		cpt = 4
	}
	n := utf8.RuneCountInString(text)
	return (n + cpt - 1) / cpt, nil
}

// TokenizerModel is the model whose BPE encoding TiktokenCounter uses.
// It is not the target provider's tokenizer; counts are an approximation.
const TokenizerModel = "gpt-4o"

// TiktokenCounter counts tokens with the TokenizerModel encoding, loaded from the
// offline BPE tables on first use. If the encoding cannot be loaded, Count falls back
// to CharFallbackCounter and LoadErr reports why.
type TiktokenCounter struct {
	once     sync.Once
	enc      *tiktoken.Tiktoken
	err      error
	fallback CharFallbackCounter
}

var setLoader sync.Once

// NewTiktokenCounter returns a counter whose encoding is loaded lazily.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

func (c *TiktokenCounter) load() {
	setLoader.Do(func() { tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader()) })
	c.enc, c.err = tiktoken.EncodingForModel(TokenizerModel)
}

// Count implements TokenCounter.
func (c *TiktokenCounter) Count(text string) (int, error) {
	c.once.Do(c.load)
	if c.enc == nil {
		return c.fallback.Count(text)
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}

// LoadErr returns the error from loading the encoding, forcing the load if needed.
// A non-nil result means counts come from CharFallbackCounter.
func (c *TiktokenCounter) LoadErr() error {
	c.once.Do(c.load)
	return c.err
}

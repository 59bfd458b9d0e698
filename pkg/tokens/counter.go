// Package tokens counts tokens and lines in skill documents and checks them
// against the registry's context budgets.
//
// Two counting strategies exist. BPECounter uses the cl100k_base encoding
// and reports MethodExact; EstimateCounter multiplies the whitespace word
// count by 1.3 and reports MethodEstimate. Every count carries the method
// that produced it so budget consumers can tell an estimate from an exact
// figure.
package tokens

import (
	"crypto/sha256"
	"math"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Method identifies the strategy that produced a token count
type Method string

const (
	// MethodExact is reported by the BPE tokenizer
	MethodExact Method = "tiktoken"
	// MethodEstimate is reported by the word-count fallback
	MethodEstimate Method = "estimate"
)

// Strategy selects which counter NewCounter builds
type Strategy string

const (
	StrategyAuto     Strategy = "auto"
	StrategyExact    Strategy = "exact"
	StrategyEstimate Strategy = "estimate"
)

const (
	encodingName    = "cl100k_base"
	wordTokenFactor = 1.3
)

// Counter counts tokens in a piece of text
type Counter interface {
	Count(text string) (int, Method)
}

// EstimateCounter approximates tokens as round(words * 1.3)
type EstimateCounter struct{}

// Count implements Counter
func (EstimateCounter) Count(text string) (int, Method) {
	words := len(strings.Fields(text))
	return int(math.RoundToEven(float64(words) * wordTokenFactor)), MethodEstimate
}

// BPECounter counts tokens with the cl100k_base byte-pair encoding
type BPECounter struct {
	encoding *tiktoken.Tiktoken
}

var loaderOnce sync.Once

// NewBPECounter loads the cl100k_base encoding from the embedded offline
// loader. It fails when the encoding cannot be constructed.
func NewBPECounter() (*BPECounter, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s encoding", encodingName)
	}
	return &BPECounter{encoding: enc}, nil
}

// Count implements Counter
func (c *BPECounter) Count(text string) (int, Method) {
	return len(c.encoding.Encode(text, nil, nil)), MethodExact
}

// NewCounter builds a counter for the given strategy. StrategyAuto prefers
// the BPE counter and silently falls back to the estimate when the encoding
// is unavailable; StrategyExact returns the load error instead.
func NewCounter(strategy Strategy) (Counter, error) {
	switch strategy {
	case StrategyEstimate:
		return EstimateCounter{}, nil
	case StrategyExact:
		return NewBPECounter()
	case StrategyAuto, "":
		if c, err := NewBPECounter(); err == nil {
			return c, nil
		}
		return EstimateCounter{}, nil
	default:
		return nil, errors.Errorf("unknown tokenizer strategy %q (want auto, exact or estimate)", strategy)
	}
}

type cachedCount struct {
	count  int
	method Method
}

// CachedCounter memoises another counter by content hash. Counting is a
// pure function of the text, so cached results are always valid.
type CachedCounter struct {
	inner Counter
	cache *lru.Cache[[sha256.Size]byte, cachedCount]
}

// NewCachedCounter wraps inner with an LRU cache holding up to size entries
func NewCachedCounter(inner Counter, size int) (*CachedCounter, error) {
	cache, err := lru.New[[sha256.Size]byte, cachedCount](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create token cache")
	}
	return &CachedCounter{inner: inner, cache: cache}, nil
}

// Count implements Counter
func (c *CachedCounter) Count(text string) (int, Method) {
	key := sha256.Sum256([]byte(text))
	if hit, ok := c.cache.Get(key); ok {
		return hit.count, hit.method
	}
	n, method := c.inner.Count(text)
	c.cache.Add(key, cachedCount{count: n, method: method})
	return n, method
}

// Len returns the number of cached entries
func (c *CachedCounter) Len() int {
	return c.cache.Len()
}

// LineCount returns the number of newline-delimited segments in text. An
// empty string is one (empty) line.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}

package rbpe

import "github.com/gobpe/rbpe/internal/radixtree"

// Options configures a new Tokenizer. The zero value is valid; New fills
// in defaults for LRUCacheSize.
type Options struct {
	// MaxDepth bounds the alternative dropout encode path (spec §9): the
	// longest candidate match considered at any position is MaxDepth
	// bytes. Zero disables EncodeWithDropout, which then falls back to
	// the plain radix-tree walk.
	MaxDepth int `json:"max_depth"`

	// TechTerms are premerged as whole tokens before the first Train call,
	// so a caller's domain vocabulary (API names, identifiers) survives
	// intact regardless of corpus statistics.
	TechTerms []string `json:"tech_terms"`

	// LRUCacheSize bounds the radix tree's hot-node cache. DefaultLRUCap
	// is used when this is <= 0.
	LRUCacheSize int `json:"lru_cache_size"`
}

// DefaultOptions returns the Options New(0, nil) would use.
func DefaultOptions() Options {
	return Options{LRUCacheSize: radixtree.DefaultLRUCap}
}

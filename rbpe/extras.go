package rbpe

import (
	"context"

	"github.com/gobpe/rbpe/internal/batchencode"
	"github.com/gobpe/rbpe/internal/rankencode"
	"github.com/gobpe/rbpe/internal/streaming"
)

// NewStreamingEncoder returns a chunk-boundary-safe Push/Flush encoder
// bound to the tokenizer's current vocabulary. Rebuild it after any
// further Train call.
func (t *Tokenizer) NewStreamingEncoder() *streaming.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	eng := t.eng
	return streaming.New(eng, func(text []byte) []int { return encodeRadix(eng.Tree, text) })
}

// NewRankEncoder returns the alternative merge-order-replay encoder
// (package internal/rankencode) bound to the tokenizer's current merges.
// It is typically used to cross-check the primary radix-tree walk, or as
// a faster encode path when the leftmost-longest bias of Encode does not
// matter to the caller.
func (t *Tokenizer) NewRankEncoder() *rankencode.Encoder {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return rankencode.New(t.eng)
}

// EncodeBatch tokenizes texts concurrently across up to workers
// goroutines (GOMAXPROCS if workers <= 0), returning results in the same
// order as texts.
func (t *Tokenizer) EncodeBatch(ctx context.Context, texts [][]byte, workers int) ([][]int, error) {
	return batchencode.Run(ctx, texts, workers, t.Encode)
}

// Package engine holds the mutable vocabulary/merges/radix-tree state
// shared by training and the rbpe facade, plus the trainer itself.
package engine

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/gobpe/rbpe/internal/bpeerr"
	"github.com/gobpe/rbpe/internal/bytelist"
	"github.com/gobpe/rbpe/internal/pairfreq"
	"github.com/gobpe/rbpe/internal/radixtree"
)

// Merge records one learned rewrite rule (A, B) -> ID.
type Merge struct {
	A, B, ID int32
}

// Engine is the tokenizer's mutable core: the id->bytes vocabulary, the
// ordered list of learned merges, and the radix tree built from them.
type Engine struct {
	Vocab  [][]byte
	Merges []Merge
	Tree   *radixtree.Tree

	pairToID    map[pairfreq.Pair]int32
	lruCap      int
	maxTokenLen int
}

// New returns an engine pre-populated with the 256 single-byte vocabulary
// entries, no merges, and an empty radix tree.
func New(lruCap int) *Engine {
	e := &Engine{
		Vocab:       make([][]byte, 256, 4096),
		Tree:        radixtree.New(lruCap),
		pairToID:    make(map[pairfreq.Pair]int32),
		lruCap:      lruCap,
		maxTokenLen: 1,
	}
	for i := 0; i < 256; i++ {
		e.Vocab[i] = []byte{byte(i)}
	}
	return e
}

// MaxTokenLen returns the longest vocab entry's byte length. Streaming
// encoders use this to size their safety margin against merges that span
// a chunk boundary.
func (e *Engine) MaxTokenLen() int { return e.maxTokenLen }

// VocabSize returns the total number of ids currently defined.
func (e *Engine) VocabSize() int { return len(e.Vocab) }

// MergeOf returns the destination id for an ordered pair, if learned.
func (e *Engine) MergeOf(a, b int32) (int32, bool) {
	id, ok := e.pairToID[pairfreq.Pair{A: a, B: b}]
	return id, ok
}

// Bytes returns the byte string for id, or nil if id is out of range.
func (e *Engine) Bytes(id int32) []byte {
	if id < 0 || int(id) >= len(e.Vocab) {
		return nil
	}
	return e.Vocab[id]
}

// recordMerge allocates the next id, appends the vocab entry, records the
// merge, and inserts the merged bytes into the radix tree. It is the one
// place new ids are minted, keeping allocation monotonic across both the
// premerge path and the main training loop.
func (e *Engine) recordMerge(a, b int32) int32 {
	id := int32(len(e.Vocab))
	merged := append(append([]byte(nil), e.Bytes(a)...), e.Bytes(b)...)
	e.Vocab = append(e.Vocab, merged)
	e.Merges = append(e.Merges, Merge{A: a, B: b, ID: id})
	e.pairToID[pairfreq.Pair{A: a, B: b}] = id
	e.Tree.Insert(merged, id)
	if len(merged) > e.maxTokenLen {
		e.maxTokenLen = len(merged)
	}
	return id
}

// PremergeTerms forces a caller-supplied list of terms to survive as
// single tokens regardless of corpus statistics: for each term not
// already a single token, it runs a local greedy BPE loop over just that
// term's bytes, outside the corpus-wide pair-index/frequency bookkeeping.
// It must run before Train so that corpus-driven merges allocate ids on
// top of (and never re-decompose) a premerged term.
func (e *Engine) PremergeTerms(terms []string) {
	for _, term := range terms {
		termBytes := []byte(term)
		if len(termBytes) == 0 {
			continue
		}
		if _, ok := e.Tree.GetExact(termBytes); ok {
			continue
		}

		seq := make([]int32, len(termBytes))
		for i, b := range termBytes {
			seq[i] = int32(b)
		}

		for len(seq) > 1 {
			counts := make(map[pairfreq.Pair]int, len(seq))
			order := make([]pairfreq.Pair, 0, len(seq))
			for i := 0; i < len(seq)-1; i++ {
				p := pairfreq.Pair{A: seq[i], B: seq[i+1]}
				if counts[p] == 0 {
					order = append(order, p)
				}
				counts[p]++
			}
			if len(order) == 0 {
				break
			}

			best := order[0]
			for _, p := range order[1:] {
				if counts[p] > counts[best] {
					best = p
				}
			}

			id := e.recordMerge(best.A, best.B)
			seq = replacePair(seq, best, id)
		}
	}
}

// seedTokens replays every already-learned merge, in the order it was
// learned, over corpus's raw bytes. Train uses this instead of a fresh
// byte-per-position list so a second Train call (or one following
// PremergeTerms) continues from the current best tokenization rather than
// rediscovering, and re-numbering, pairs it already knows about.
func (e *Engine) seedTokens(corpus []byte) []int32 {
	seq := make([]int32, len(corpus))
	for i, b := range corpus {
		seq[i] = int32(b)
	}
	for _, m := range e.Merges {
		seq = replacePair(seq, pairfreq.Pair{A: m.A, B: m.B}, m.ID)
	}
	return seq
}

func replacePair(seq []int32, pair pairfreq.Pair, newID int32) []int32 {
	out := make([]int32, 0, len(seq))
	i := 0
	for i < len(seq) {
		if i+1 < len(seq) && seq[i] == pair.A && seq[i+1] == pair.B {
			out = append(out, newID)
			i += 2
		} else {
			out = append(out, seq[i])
			i++
		}
	}
	return out
}

// Train drives the incremental merge loop to grow the
// vocabulary from its current size up to vocabSize, using corpus as the
// training text. It is a usage error to pass an empty corpus or a
// vocabSize smaller than the engine's current size.
func (e *Engine) Train(corpus []byte, vocabSize int, log *slog.Logger) error {
	if len(corpus) == 0 {
		return errors.WithMessage(bpeerr.ErrEmptyCorpus, "bpe: train")
	}
	if vocabSize < len(e.Vocab) {
		return errors.Errorf("bpe: train: vocab_size %d is smaller than current vocab size %d", vocabSize, len(e.Vocab))
	}
	if log == nil {
		log = slog.Default()
	}

	remaining := vocabSize - len(e.Vocab)
	if remaining <= 0 {
		return nil
	}

	list := bytelist.NewFromTokens(e.seedTokens(corpus))
	stats := pairfreq.New()
	for i := list.Head(); i != bytelist.NilIndex; i = list.Next(i) {
		j := list.Next(i)
		if j == bytelist.NilIndex {
			break
		}
		stats.AddOne(pairfreq.Pair{A: list.Val(i), B: list.Val(j)})
	}

	for step := 0; step < remaining; step++ {
		pair, count := stats.Max()
		if count == 0 {
			log.Info("bpe training stopped early: no pairs remain", "merges", len(e.Merges))
			break
		}

		id := e.recordMerge(pair.A, pair.B)
		applyMerge(list, stats, pair.A, pair.B, id)

		if step < 5 || (step+1)%500 == 0 || step == remaining-1 {
			log.Info("bpe merge",
				"step", step+1,
				"of", remaining,
				"pair_a", pair.A,
				"pair_b", pair.B,
				"new_id", id,
				"freq", count,
			)
		}
	}
	return nil
}

// applyMerge collapses every occurrence of pair into newID: each
// candidate position is re-verified against staleness, the edges
// touching the consumed neighbor are rescored, and the list is spliced.
func applyMerge(list *bytelist.List, stats *pairfreq.Multiset, a, b, newID int32) {
	for _, l := range list.PositionsOf(a, b) {
		r := list.Next(l)
		if r == bytelist.NilIndex || list.Val(l) != a || list.Val(r) != b {
			continue
		}

		p := list.Prev(l)
		rr := list.Next(r)

		if p != bytelist.NilIndex {
			stats.RemoveOne(pairfreq.Pair{A: list.Val(p), B: list.Val(l)})
		}
		stats.RemoveOne(pairfreq.Pair{A: list.Val(l), B: list.Val(r)})
		if rr != bytelist.NilIndex {
			stats.RemoveOne(pairfreq.Pair{A: list.Val(r), B: list.Val(rr)})
		}

		list.Collapse(l, r, newID)
		list.UpdateIndex(l, a, b)

		if p != bytelist.NilIndex {
			stats.AddOne(pairfreq.Pair{A: list.Val(p), B: newID})
		}
		if rr != bytelist.NilIndex {
			stats.AddOne(pairfreq.Pair{A: newID, B: list.Val(rr)})
		}
	}
}

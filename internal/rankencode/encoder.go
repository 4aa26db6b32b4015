// Package rankencode is an alternative encoder: instead of walking the
// radix tree for the longest match at each position, it replays an
// engine's learned merges in training order over a doubly-linked working
// copy of the input, driven by a rank-ordered queue of merge candidates.
// It stays in sync with whatever a trainer last learned since it reads
// an engine's merges directly, with no separate export step.
package rankencode

import (
	"sync"

	"github.com/gobpe/rbpe/internal/engine"
)

// Encoder replays an engine's learned merges to tokenize input. Building
// one amortizes the Lookup's construction cost across many Encode calls;
// the caller must rebuild it after further training.
type Encoder struct {
	lookup      *Lookup
	scratchPool sync.Pool
}

// New builds an Encoder bound to eng's current merges. It does not observe
// merges learned after this call.
func New(eng *engine.Engine) *Encoder {
	return &Encoder{lookup: NewLookup(eng.Merges, eng.VocabSize())}
}

type scratch struct {
	tokens []int32
	prev   []int
	next   []int
	live   []int
}

func (e *Encoder) acquire(n int) *scratch {
	v := e.scratchPool.Get()
	var sc *scratch
	if v == nil {
		sc = &scratch{}
	} else {
		sc = v.(*scratch)
	}
	sc.tokens = ensureInt32Cap(sc.tokens, n)
	sc.prev = ensureIntCap(sc.prev, n)
	sc.next = ensureIntCap(sc.next, n)
	sc.live = ensureIntCap(sc.live, n)
	return sc
}

func (e *Encoder) release(sc *scratch) { e.scratchPool.Put(sc) }

func ensureInt32Cap(buf []int32, n int) []int32 {
	if cap(buf) < n {
		return make([]int32, n)
	}
	return buf[:n]
}

func ensureIntCap(buf []int, n int) []int {
	if cap(buf) < n {
		return make([]int, n)
	}
	return buf[:n]
}

// Encode tokenizes input by seeding one token per byte and repeatedly
// applying the lowest-rank learned merge that still applies anywhere in
// the sequence, same as the training-time objective the merges were
// learned to optimize. This can disagree with the radix-tree walk's
// leftmost-longest choice in ambiguous spots; both are valid tokenizations
// of the same bytes and both round-trip through Decode.
func (e *Encoder) Encode(input []byte) []int {
	n := len(input)
	if n == 0 {
		return nil
	}

	sc := e.acquire(n)
	defer e.release(sc)

	tokens := sc.tokens
	prev := sc.prev
	next := sc.next
	live := sc.live

	for i, b := range input {
		tokens[i] = int32(b)
		prev[i] = i - 1
		next[i] = i + 1
		live[i] = 0
	}
	prev[0] = -1
	next[n-1] = -1

	q := newCandidateQueue(e.lookup.MaxRank())

	pushIfMergeable := func(i int) {
		if i == -1 {
			return
		}
		j := next[i]
		if j == -1 {
			return
		}
		rank, _, ok := e.lookup.Find(tokens[i], tokens[j])
		if !ok {
			return
		}
		q.Push(candidate{
			rank:       rank,
			pos:        i,
			leftToken:  tokens[i],
			rightToken: tokens[j],
			verL:       live[i],
			verR:       live[j],
		})
	}

	for i := 0; i != -1 && next[i] != -1; i = next[i] {
		pushIfMergeable(i)
	}

	head := 0
	for {
		c, ok := q.Pop()
		if !ok {
			break
		}
		i := c.pos
		if i == -1 {
			continue
		}
		j := next[i]
		if j == -1 {
			continue
		}
		if live[i] != c.verL || live[j] != c.verR {
			continue
		}
		if tokens[i] != c.leftToken || tokens[j] != c.rightToken {
			continue
		}

		rankNow, id, ok := e.lookup.Find(tokens[i], tokens[j])
		if !ok || rankNow != c.rank {
			continue
		}

		tokens[i] = id

		nj := next[j]
		next[i] = nj
		if nj != -1 {
			prev[nj] = i
		}
		prev[j], next[j] = -1, -1

		live[i]++
		live[j]++

		if pi := prev[i]; pi != -1 {
			pushIfMergeable(pi)
		}
		pushIfMergeable(i)
	}

	out := make([]int, 0, n)
	for i := head; i != -1; i = next[i] {
		out = append(out, int(tokens[i]))
	}
	return out
}

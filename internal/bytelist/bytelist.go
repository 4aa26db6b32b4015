// Package bytelist implements an arena-backed doubly-linked list of token
// ids with a pair-position index over adjacent (a, b) token pairs.
//
// It is the trainer's working copy of the corpus: every merge mutates the
// list in place and only touches the neighborhood of the positions it
// consumes. The pair index is permissive — see PositionsOf.
package bytelist

// NilIndex marks the absence of a neighbor or a deleted node.
const NilIndex int32 = -1

// nilIdx is the unexported alias used throughout this file.
const nilIdx = NilIndex

// List is a doubly-linked sequence of token ids, stored as an arena of
// nodes addressed by index rather than pointer, avoiding a pointer-chased
// node graph.
type List struct {
	val  []int32
	prev []int32
	next []int32

	head int32
	tail int32

	index pairIndex
}

// pairKey identifies an ordered pair of token ids.
type pairKey struct {
	a, b int32
}

// pairIndex maps a pair key to the set of left-node indices where that
// pair currently (or recently) occurs. Staleness is permissive by
// design: callers must re-verify before acting on a returned position —
// see List.PositionsOf.
type pairIndex map[pairKey][]int32

// New builds a List from the given byte sequence; nodes are allocated in
// order and linked front to back. Every adjacent pair is registered in
// the pair index.
func New(bytes []byte) *List {
	vals := make([]int32, len(bytes))
	for i, b := range bytes {
		vals[i] = int32(b)
	}
	return NewFromTokens(vals)
}

// NewFromTokens builds a List from an already-tokenized sequence (e.g. a
// corpus replayed through a tokenizer's existing merges before further
// training continues it). It is the general constructor New delegates to.
func NewFromTokens(vals []int32) *List {
	n := len(vals)
	l := &List{
		val:   make([]int32, n, n+64),
		prev:  make([]int32, n, n+64),
		next:  make([]int32, n, n+64),
		head:  nilIdx,
		tail:  nilIdx,
		index: make(pairIndex, n),
	}
	if n == 0 {
		return l
	}

	copy(l.val, vals)
	for i := 0; i < n; i++ {
		l.prev[i] = int32(i - 1)
		l.next[i] = int32(i + 1)
	}
	l.prev[0] = nilIdx
	l.next[n-1] = nilIdx
	l.head = 0
	l.tail = int32(n - 1)

	for i := 0; i < n-1; i++ {
		l.index.add(l.val[i], l.val[i+1], int32(i))
	}
	return l
}

// Len reports the number of live nodes.
func (l *List) Len() int {
	n := 0
	for i := l.head; i != nilIdx; i = l.next[i] {
		n++
	}
	return n
}

// Head returns the index of the first live node, or nilIdx if empty.
func (l *List) Head() int32 { return l.head }

// Val returns the current token id stored at node i.
func (l *List) Val(i int32) int32 { return l.val[i] }

// Next returns the index of the node following i, or nilIdx at the tail.
func (l *List) Next(i int32) int32 {
	if i == nilIdx {
		return nilIdx
	}
	return l.next[i]
}

// Prev returns the index of the node preceding i, or nilIdx at the head.
func (l *List) Prev(i int32) int32 {
	if i == nilIdx {
		return nilIdx
	}
	return l.prev[i]
}

// PositionsOf returns the stored left-node indices for pair (a, b). The
// collection may contain stale entries — a neighboring merge may have
// changed node.val or detached node.next without this index noticing.
// Callers MUST re-verify Val(i) == a && Next(i) != nilIdx && Val(Next(i))
// == b before acting on any returned position.
func (l *List) PositionsOf(a, b int32) []int32 {
	return l.index[pairKey{a, b}]
}

// Collapse merges node i with its right neighbor j = Next(i): i takes on
// newVal, i's next becomes j's former next, and j is detached from the
// list. It does not touch the pair index — callers apply pair-count
// bookkeeping against the old edges themselves (the trainer needs the
// pre-collapse neighbor values to do that) and then call UpdateIndex with
// i's own pre-collapse value and its pre-collapse right neighbor's value.
func (l *List) Collapse(i, j int32, newVal int32) {
	nj := l.next[j]
	l.val[i] = newVal
	l.next[i] = nj
	if nj != nilIdx {
		l.prev[nj] = i
	} else {
		l.tail = i
	}
	l.prev[j], l.next[j] = nilIdx, nilIdx
}

// UpdateIndex re-registers node i's adjacent pairs under its current
// (post-collapse) neighbor values. It first unregisters i from the pair
// index under its previous left-pair key (prev.val, oldVal) and previous
// right-pair key (oldVal, oldRightVal), then re-registers under the
// current keys — so a pair a node is no longer part of does not linger
// in the index forever. Callers must invoke this exactly once, after
// Collapse, passing i's value and its pre-collapse right neighbor's
// value, and after any stats bookkeeping that needed the old values.
func (l *List) UpdateIndex(i, oldVal, oldRightVal int32) {
	if p := l.prev[i]; p != nilIdx {
		l.index.remove(l.val[p], oldVal, p)
		l.index.add(l.val[p], l.val[i], p)
	}
	l.index.remove(oldVal, oldRightVal, i)
	if n := l.next[i]; n != nilIdx {
		l.index.add(l.val[i], l.val[n], i)
	}
}

func (idx pairIndex) add(a, b int32, left int32) {
	idx[pairKey{a, b}] = append(idx[pairKey{a, b}], left)
}

func (idx pairIndex) remove(a, b int32, left int32) {
	key := pairKey{a, b}
	positions := idx[key]
	for i, p := range positions {
		if p == left {
			positions[i] = positions[len(positions)-1]
			positions = positions[:len(positions)-1]
			if len(positions) == 0 {
				delete(idx, key)
			} else {
				idx[key] = positions
			}
			return
		}
	}
}

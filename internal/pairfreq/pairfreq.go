// Package pairfreq implements the pair-frequency multiset used by the BPE
// trainer: a pair -> count map augmented with a max-priority queue that
// tolerates stale entries rather than repairing itself on every mutation.
package pairfreq

// Pair is an ordered pair of token ids.
type Pair struct {
	A, B int32
}

// entry is one heap slot: a pair plus the count it was pushed with. An
// entry is valid iff its Count still equals counts[Pair] at pop time.
type entry struct {
	pair  Pair
	count int
}

// Multiset is the pair -> count map plus its lazily-invalidated heap.
type Multiset struct {
	counts map[Pair]int
	heap   []entry
}

// New returns an empty Multiset.
func New() *Multiset {
	return &Multiset{counts: make(map[Pair]int)}
}

// Add increments the count for pair by n (default 1 via AddOne) and
// pushes a fresh snapshot onto the heap.
func (m *Multiset) Add(pair Pair, n int) {
	m.counts[pair] += n
	m.push(entry{pair, m.counts[pair]})
}

// AddOne is Add(pair, 1).
func (m *Multiset) AddOne(pair Pair) { m.Add(pair, 1) }

// Remove decrements the count for pair by n. A count that reaches zero or
// below erases the entry outright (counts never go negative); otherwise
// the new snapshot is pushed. Removing an absent pair is a no-op.
func (m *Multiset) Remove(pair Pair, n int) {
	c, ok := m.counts[pair]
	if !ok {
		return
	}
	c -= n
	if c <= 0 {
		delete(m.counts, pair)
		return
	}
	m.counts[pair] = c
	m.push(entry{pair, c})
}

// RemoveOne is Remove(pair, 1).
func (m *Multiset) RemoveOne(pair Pair) { m.Remove(pair, 1) }

// Max pops stale heap entries until the top entry's snapshot count
// matches the authoritative map, then returns it without removing it
// (the pair stays both in the map and, implicitly, at the heap top,
// since nothing invalidates it until the next Add/Remove on that pair).
// If the multiset is empty, Max returns the sentinel (Pair{-1,-1}, 0).
func (m *Multiset) Max() (Pair, int) {
	for len(m.heap) > 0 {
		top := m.heap[0]
		if c, ok := m.counts[top.pair]; ok && c == top.count {
			return top.pair, c
		}
		m.pop()
	}
	return Pair{-1, -1}, 0
}

// Len returns the number of distinct pairs with positive count.
func (m *Multiset) Len() int { return len(m.counts) }

// Count returns the authoritative count for pair (0 if absent).
func (m *Multiset) Count(pair Pair) int { return m.counts[pair] }

func (m *Multiset) less(i, j entry) bool { return i.count > j.count }

func (m *Multiset) push(e entry) {
	m.heap = append(m.heap, e)
	m.siftUp(len(m.heap) - 1)
}

func (m *Multiset) pop() entry {
	n := len(m.heap) - 1
	m.heap[0], m.heap[n] = m.heap[n], m.heap[0]
	top := m.heap[n]
	m.heap = m.heap[:n]
	if n > 0 {
		m.siftDown(0)
	}
	return top
}

func (m *Multiset) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !m.less(m.heap[i], m.heap[parent]) {
			break
		}
		m.heap[i], m.heap[parent] = m.heap[parent], m.heap[i]
		i = parent
	}
}

func (m *Multiset) siftDown(i int) {
	n := len(m.heap)
	for {
		left, right := 2*i+1, 2*i+2
		top := i
		if left < n && m.less(m.heap[left], m.heap[top]) {
			top = left
		}
		if right < n && m.less(m.heap[right], m.heap[top]) {
			top = right
		}
		if top == i {
			break
		}
		m.heap[i], m.heap[top] = m.heap[top], m.heap[i]
		i = top
	}
}

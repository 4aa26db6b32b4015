// Package radixtree implements the compressed trie over learned token
// byte strings used for longest-prefix-match encoding, plus a bounded LRU
// over recently touched nodes, keyed on node identity instead of a string
// so a hit costs no allocation.
package radixtree

// NoValue marks a non-terminal node.
const NoValue = int32(-1)

// Node is one radix-tree node. children is keyed by the first byte of
// each child's prefix; no two children of a node may share a key, and a
// non-root node's prefix is never empty.
type Node struct {
	prefix   []byte
	children map[byte]*Node
	value    int32

	lruPrev, lruNext *Node
	inLRU            bool
}

func newNode(prefix []byte) *Node {
	return &Node{prefix: prefix, children: make(map[byte]*Node), value: NoValue}
}

// NewRawNode constructs a detached node, for deserializers rebuilding a
// tree from a persisted file. prefix is taken by reference.
func NewRawNode(prefix []byte, value int32) *Node {
	n := newNode(prefix)
	n.value = value
	return n
}

// SetChild attaches child under key b, for deserializers.
func (n *Node) SetChild(b byte, child *Node) { n.children[b] = child }

// Children returns the node's child map for iteration (e.g. serializers).
// Callers must not mutate the returned map.
func (n *Node) Children() map[byte]*Node { return n.children }

// FromRoot wraps an already-built node tree (e.g. one just deserialized)
// as a Tree with a fresh, empty LRU.
func FromRoot(root *Node, cap int) *Tree {
	if cap <= 0 {
		cap = DefaultLRUCap
	}
	return &Tree{root: root, lruCap: cap}
}

// Tree is the radix tree rooted at an empty-prefix node, plus its LRU.
type Tree struct {
	root *Node

	lruHead, lruTail *Node
	lruLen, lruCap   int
}

// New returns an empty tree. cap bounds the LRU cache of hot nodes;
// DefaultLRUCap is used if cap <= 0.
func New(cap int) *Tree {
	if cap <= 0 {
		cap = DefaultLRUCap
	}
	return &Tree{root: newNode(nil), lruCap: cap}
}

// DefaultLRUCap is the default cap on the number of hot nodes kept in
// the LRU when no explicit size is configured.
const DefaultLRUCap = 1024

// Root returns the tree's root node, for callers walking it directly
// (the encoder's longest-prefix walk in package rbpe does this).
func (t *Tree) Root() *Node { return t.root }

// Child returns node's child keyed by b, or nil.
func (n *Node) Child(b byte) *Node { return n.children[b] }

// Prefix returns the node's owned byte string.
func (n *Node) Prefix() []byte { return n.prefix }

// Value returns the node's terminal token id, or NoValue.
func (n *Node) Value() int32 { return n.value }

// Insert walks from the root consuming tokenBytes, splitting an existing
// child's prefix if it shares only a partial match, and sets the
// terminal value of the node reached to tokenID.
func (t *Tree) Insert(tokenBytes []byte, tokenID int32) {
	node := t.root
	i := 0
	for i < len(tokenBytes) {
		b := tokenBytes[i]
		child := node.children[b]
		if child == nil {
			leaf := newNode(append([]byte(nil), tokenBytes[i:]...))
			leaf.value = tokenID
			node.children[b] = leaf
			return
		}

		common := commonPrefixLen(child.prefix, tokenBytes[i:])
		if common == len(child.prefix) {
			node = child
			i += common
			continue
		}

		// Split: a new internal node holds the shared prefix; the
		// existing child is relinked under it keyed by its now-shorter
		// remaining prefix, and a fresh leaf holds the tail of the
		// input.
		split := newNode(append([]byte(nil), child.prefix[:common]...))
		child.prefix = child.prefix[common:]
		split.children[child.prefix[0]] = child

		tail := append([]byte(nil), tokenBytes[i+common:]...)
		if len(tail) == 0 {
			split.value = tokenID
			node.children[b] = split
			return
		}
		leaf := newNode(tail)
		leaf.value = tokenID
		split.children[tail[0]] = leaf

		node.children[b] = split
		node = leaf
		i = len(tokenBytes)
	}
	node.value = tokenID
}

// GetExact walks byte-by-byte and returns the terminal value for an exact
// match of tokenBytes, or (NoValue, false) if no such token was
// inserted. A successful lookup touches the LRU.
func (t *Tree) GetExact(tokenBytes []byte) (int32, bool) {
	node := t.root
	i := 0
	for i < len(tokenBytes) {
		child := node.children[tokenBytes[i]]
		if child == nil {
			return NoValue, false
		}
		if len(tokenBytes)-i < len(child.prefix) {
			return NoValue, false
		}
		if !bytesEqual(tokenBytes[i:i+len(child.prefix)], child.prefix) {
			return NoValue, false
		}
		i += len(child.prefix)
		node = child
	}
	if node.value == NoValue {
		return NoValue, false
	}
	t.touch(node)
	return node.value, true
}

// touch moves node to the front of the LRU, inserting it if absent and
// evicting the tail once the cache exceeds its cap. The LRU has no
// correctness role — it affects only temporal locality — so a miss here
// is never a bug.
func (t *Tree) touch(n *Node) {
	if n.inLRU {
		if n == t.lruHead {
			return
		}
		t.unlinkLRU(n)
	} else {
		n.inLRU = true
		t.lruLen++
	}

	n.lruPrev = nil
	n.lruNext = t.lruHead
	if t.lruHead != nil {
		t.lruHead.lruPrev = n
	}
	t.lruHead = n
	if t.lruTail == nil {
		t.lruTail = n
	}

	if t.lruLen > t.lruCap {
		evict := t.lruTail
		t.unlinkLRU(evict)
		evict.inLRU = false
		t.lruLen--
	}
}

// unlinkLRU removes n from the LRU's doubly-linked chain without
// touching n.inLRU or t.lruLen — callers update those themselves.
func (t *Tree) unlinkLRU(n *Node) {
	if n.lruPrev != nil {
		n.lruPrev.lruNext = n.lruNext
	} else if t.lruHead == n {
		t.lruHead = n.lruNext
	}
	if n.lruNext != nil {
		n.lruNext.lruPrev = n.lruPrev
	} else if t.lruTail == n {
		t.lruTail = n.lruPrev
	}
	n.lruPrev, n.lruNext = nil, nil
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

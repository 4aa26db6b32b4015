// Package rbpe is the public facade over the byte-level BPE engine: a
// trainable tokenizer with radix-tree encoding, dropout-regularized
// encoding, overlapping chunking, and an atomic save/load format.
package rbpe

import (
	"log/slog"
	"math/rand"
	"os"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/gobpe/rbpe/internal/bpeerr"
	"github.com/gobpe/rbpe/internal/engine"
	"github.com/gobpe/rbpe/internal/radixtree"
)

// Tokenizer is safe for concurrent use: Encode/Decode readers take an
// RLock, Train takes the write lock for its whole duration, and Load takes
// it only to swap in the freshly read engine. EncodeWithDropout also takes
// the write lock, since its exact-match lookups update the radix tree's
// LRU. That
// is coarser than a per-merge barrier would be, but it is the simplest
// implementation that still gives readers a consistent snapshot, and
// training is not expected to run concurrently with a hot encode path.
type Tokenizer struct {
	mu sync.RWMutex

	eng       *engine.Engine
	maxDepth  int
	techTerms []string
	lruCap    int
	premerged bool

	log *slog.Logger
}

// New returns an untrained Tokenizer seeded with the 256 single-byte ids.
// maxDepth bounds EncodeWithDropout (0 disables it); techTerms are
// premerged whole on the first call to Train.
func New(maxDepth int, techTerms []string) *Tokenizer {
	return NewWithOptions(Options{MaxDepth: maxDepth, TechTerms: techTerms})
}

// NewWithOptions is New with the LRU cache size also configurable.
func NewWithOptions(opts Options) *Tokenizer {
	cap := opts.LRUCacheSize
	if cap <= 0 {
		cap = radixtree.DefaultLRUCap
	}
	return &Tokenizer{
		eng:       engine.New(cap),
		maxDepth:  opts.MaxDepth,
		techTerms: opts.TechTerms,
		lruCap:    cap,
		log:       slog.Default(),
	}
}

// SetLogger overrides the structured logger used for training progress.
func (t *Tokenizer) SetLogger(log *slog.Logger) {
	if log != nil {
		t.log = log
	}
}

// VocabSize returns the number of ids currently defined.
func (t *Tokenizer) VocabSize() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.eng.VocabSize()
}

// Train grows the vocabulary toward vocabSize using corpus as training
// text. Technical terms passed to New/NewWithOptions are premerged once,
// before the first corpus-driven merge is learned.
func (t *Tokenizer) Train(corpus []byte, vocabSize int) error {
	if vocabSize < 256 {
		return errors.Wrapf(bpeerr.ErrVocabTooSmall, "vocab_size=%d", vocabSize)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.premerged {
		if len(t.techTerms) > 0 {
			t.eng.PremergeTerms(t.techTerms)
		}
		t.premerged = true
	}

	return t.eng.Train(corpus, vocabSize, t.log)
}

// Encode tokenizes text greedily against the learned radix tree: at each
// position it walks the longest prefix match, tracking the last terminal
// node crossed, and falls back to the raw byte when no learned token
// covers the position at all.
//
// Unlike the reference walk this is grounded on, reaching end-of-input (or
// a dead end) mid-walk without ever crossing a terminal does not drop the
// bytes already consumed into that walk: the loop keeps flushing until it
// is back at the root, so decode(encode(text)) == text for any input,
// including inputs that dead-end into a non-terminal split node.
func (t *Tokenizer) Encode(text []byte) []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return encodeRadix(t.eng.Tree, text)
}

func encodeRadix(tree *radixtree.Tree, text []byte) []int {
	n := len(text)
	if n == 0 {
		return nil
	}
	root := tree.Root()

	ids := make([]int, 0, n)
	walkStart := 0
	pos := 0
	node := root
	longestID := radixtree.NoValue
	longestPos := 0

	for pos < n || node != root {
		var child *radixtree.Node
		if pos < n {
			child = node.Child(text[pos])
		}
		if child != nil {
			prefix := child.Prefix()
			end := pos + len(prefix)
			if end <= n && bytesEqual(text[pos:end], prefix) {
				node = child
				pos = end
				if node.Value() != radixtree.NoValue {
					longestID = node.Value()
					longestPos = pos
				}
				continue
			}
		}

		if longestID != radixtree.NoValue {
			ids = append(ids, int(longestID))
			pos = longestPos
		} else {
			ids = append(ids, int(text[walkStart]))
			pos = walkStart + 1
		}
		walkStart = pos
		node = root
		longestID = radixtree.NoValue
		longestPos = pos
	}
	return ids
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

// Decode concatenates vocab[id] for each id. An id outside the current
// vocabulary is never fatal: it decodes to the single byte equal to its
// low 8 bits, matching the original encoder's char-cast fallback so a
// negative id round-trips the same way a too-large one does. Callers that
// want negative ids treated as a usage error instead should use
// DecodeStrict.
func (t *Tokenizer) Decode(ids []int) []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]byte, 0, len(ids))
	for _, id := range ids {
		if b := t.eng.Bytes(int32(id)); b != nil && int(int32(id)) == id {
			out = append(out, b...)
			continue
		}
		out = append(out, byte(id))
	}
	return out
}

// DecodeStrict is Decode but returns ErrNegativeTokenID instead of
// silently byte-casting any negative id in ids.
func (t *Tokenizer) DecodeStrict(ids []int) ([]byte, error) {
	for _, id := range ids {
		if id < 0 {
			return nil, errors.Wrapf(bpeerr.ErrNegativeTokenID, "id %d", id)
		}
	}
	return t.Decode(ids), nil
}

// EncodeWithDropout is a regularized encoder: at each position it
// considers every candidate length from 1 up to MaxDepth,
// independently drops each candidate longer than one byte with
// probability dropoutProb, and emits the longest surviving candidate (a
// single byte is never dropped, so there is always a fallback). MaxDepth
// == 0 disables this path entirely, falling back to Encode.
//
// rng is caller-supplied so training-time augmentation can be made
// deterministic by seeding it; nil is not accepted since there is no safe
// implicit default seed.
func (t *Tokenizer) EncodeWithDropout(text []byte, dropoutProb float64, rng *rand.Rand) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxDepth <= 0 {
		return encodeRadix(t.eng.Tree, text)
	}

	n := len(text)
	ids := make([]int, 0, n)
	pos := 0
	for pos < n {
		bestID := int32(-1)
		bestLen := 0

		limit := t.maxDepth
		if pos+limit > n {
			limit = n - pos
		}
		for length := 1; length <= limit; length++ {
			var id int32
			var ok bool
			if length == 1 {
				id, ok = int32(text[pos]), true
			} else {
				id, ok = t.eng.Tree.GetExact(text[pos : pos+length])
			}
			if !ok {
				continue
			}
			if length > 1 && rng.Float64() < dropoutProb {
				continue
			}
			if length > bestLen {
				bestID, bestLen = id, length
			}
		}

		if bestLen > 0 {
			ids = append(ids, int(bestID))
			pos += bestLen
		} else {
			ids = append(ids, int(text[pos]))
			pos++
		}
	}
	return ids
}

// ChunkWithOverlap encodes text and splits the resulting id sequence into
// chunks of at most chunkSize ids, each chunk after the first repeating
// the previous chunk's last overlap ids. Requires 0 <= overlap < chunkSize.
func (t *Tokenizer) ChunkWithOverlap(text []byte, chunkSize, overlap int) ([][]int, error) {
	if overlap < 0 || overlap >= chunkSize {
		return nil, errors.Wrapf(bpeerr.ErrOverlapRange, "overlap=%d chunk_size=%d", overlap, chunkSize)
	}

	ids := t.Encode(text)
	if len(ids) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	var chunks [][]int
	for start := 0; start < len(ids); start += step {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := make([]int, end-start)
		copy(chunk, ids[start:end])
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Save serializes the tokenizer's vocabulary, merges, and radix tree to
// path, guarded by an on-disk flock and written via a temp-file-then-rename
// so a reader never observes a partially written file.
func (t *Tokenizer) Save(path string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrapf(err, "bpe: lock %q for save", path)
	}
	defer lock.Unlock()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "bpe: create %q", tmp)
	}
	if _, err := t.eng.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "bpe: write %q", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "bpe: close %q", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "bpe: rename %q to %q", tmp, path)
	}
	return nil
}

// Load replaces the tokenizer's state with the contents of path. The read
// is transactional: a corrupt or truncated file leaves the current
// in-memory state untouched, since engine.ReadFrom only ever builds a
// fresh Engine and the swap happens after it succeeds.
func (t *Tokenizer) Load(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrapf(err, "bpe: lock %q for load", path)
	}
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "bpe: open %q", path)
	}
	defer f.Close()

	eng, err := engine.ReadFrom(f, t.lruCap)
	if err != nil {
		return errors.Wrapf(bpeerr.ErrCorrupt, "%q: %v", path, err)
	}

	t.mu.Lock()
	t.eng = eng
	t.mu.Unlock()
	return nil
}

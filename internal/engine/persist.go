package engine

import (
	"encoding/binary"
	"io"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/gobpe/rbpe/internal/pairfreq"
	"github.com/gobpe/rbpe/internal/radixtree"
)

// WriteTo serializes vocab, merges, and the radix tree in a fixed order:
// vocab_size, then each (id, len, bytes); then merges_size, then each
// (first, second, id); then the radix tree in depth-first preorder. Every
// size_t/int32 field is written little-endian, and children are emitted
// in sorted key order so two engines with the same vocabulary produce
// byte-identical files.
func (e *Engine) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	if err := writeUint64(cw, uint64(len(e.Vocab))); err != nil {
		return cw.n, errors.Wrap(err, "bpe: write vocab_size")
	}
	for id, bytes := range e.Vocab {
		if err := writeInt32(cw, int32(id)); err != nil {
			return cw.n, errors.Wrap(err, "bpe: write vocab id")
		}
		if err := writeUint64(cw, uint64(len(bytes))); err != nil {
			return cw.n, errors.Wrap(err, "bpe: write vocab len")
		}
		if _, err := cw.Write(bytes); err != nil {
			return cw.n, errors.Wrap(err, "bpe: write vocab bytes")
		}
	}

	if err := writeUint64(cw, uint64(len(e.Merges))); err != nil {
		return cw.n, errors.Wrap(err, "bpe: write merges_size")
	}
	for _, m := range e.Merges {
		if err := writeInt32(cw, m.A); err != nil {
			return cw.n, errors.Wrap(err, "bpe: write merge first")
		}
		if err := writeInt32(cw, m.B); err != nil {
			return cw.n, errors.Wrap(err, "bpe: write merge second")
		}
		if err := writeInt32(cw, m.ID); err != nil {
			return cw.n, errors.Wrap(err, "bpe: write merge id")
		}
	}

	if err := writeNode(cw, e.Tree.Root()); err != nil {
		return cw.n, errors.Wrap(err, "bpe: write radix tree")
	}
	return cw.n, nil
}

func writeNode(w io.Writer, n *radixtree.Node) error {
	prefix := n.Prefix()
	if err := writeUint64(w, uint64(len(prefix))); err != nil {
		return err
	}
	if _, err := w.Write(prefix); err != nil {
		return err
	}
	if err := writeInt32(w, n.Value()); err != nil {
		return err
	}

	children := n.Children()
	keys := make([]byte, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	if err := writeUint64(w, uint64(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := w.Write([]byte{k}); err != nil {
			return err
		}
		if err := writeNode(w, children[k]); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom rebuilds an Engine from a stream written by WriteTo. It is
// transactional in the caller's sense: it returns a brand-new Engine and
// never mutates an existing one, so a caller wiring this into Load can
// swap state in only after a successful read. Corruption is reported as
// an error rather than a partial engine.
func ReadFrom(r io.Reader, lruCap int) (*Engine, error) {
	vocabSize, err := readUint64(r)
	if err != nil {
		return nil, errors.Wrap(err, "bpe: read vocab_size")
	}
	if vocabSize < 256 {
		return nil, errors.Errorf("bpe: corrupt vocab: vocab_size %d is smaller than the 256 required single-byte entries", vocabSize)
	}
	if vocabSize > math.MaxInt32 {
		return nil, errors.Errorf("bpe: corrupt vocab: vocab_size %d exceeds the int32 id range", vocabSize)
	}

	vocab := make([][]byte, vocabSize)
	seen := make([]bool, vocabSize)
	for i := uint64(0); i < vocabSize; i++ {
		id, err := readInt32(r)
		if err != nil {
			return nil, errors.Wrap(err, "bpe: read vocab id")
		}
		n, err := readUint64(r)
		if err != nil {
			return nil, errors.Wrap(err, "bpe: read vocab len")
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrap(err, "bpe: read vocab bytes")
		}
		if id < 0 || uint64(id) >= vocabSize {
			return nil, errors.Errorf("bpe: corrupt vocab: id %d out of range [0,%d)", id, vocabSize)
		}
		vocab[id] = buf
		seen[id] = true
	}
	for id, ok := range seen {
		if !ok {
			return nil, errors.Errorf("bpe: corrupt vocab: missing id %d", id)
		}
	}
	for b := 0; b < 256; b++ {
		if len(vocab[b]) != 1 || vocab[b][0] != byte(b) {
			return nil, errors.Errorf("bpe: corrupt vocab: single-byte entry %d malformed", b)
		}
	}

	mergesSize, err := readUint64(r)
	if err != nil {
		return nil, errors.Wrap(err, "bpe: read merges_size")
	}
	if mergesSize > vocabSize {
		return nil, errors.Errorf("bpe: corrupt merges: merges_size %d exceeds vocab_size %d", mergesSize, vocabSize)
	}
	merges := make([]Merge, mergesSize)
	pairToID := make(map[pairfreq.Pair]int32, mergesSize)
	for i := uint64(0); i < mergesSize; i++ {
		a, err := readInt32(r)
		if err != nil {
			return nil, errors.Wrap(err, "bpe: read merge first")
		}
		b, err := readInt32(r)
		if err != nil {
			return nil, errors.Wrap(err, "bpe: read merge second")
		}
		id, err := readInt32(r)
		if err != nil {
			return nil, errors.Wrap(err, "bpe: read merge id")
		}
		if a < 0 || uint64(a) >= vocabSize || b < 0 || uint64(b) >= vocabSize || id < 0 || uint64(id) >= vocabSize {
			return nil, errors.Errorf("bpe: corrupt merge (%d,%d)->%d references an id outside vocab", a, b, id)
		}
		merges[i] = Merge{A: a, B: b, ID: id}
		pairToID[pairfreq.Pair{A: a, B: b}] = id
	}

	root, err := readNode(r)
	if err != nil {
		return nil, errors.Wrap(err, "bpe: read radix tree")
	}

	maxTokenLen := 1
	for _, b := range vocab {
		if len(b) > maxTokenLen {
			maxTokenLen = len(b)
		}
	}

	e := &Engine{
		Vocab:       vocab,
		Merges:      merges,
		Tree:        radixtree.FromRoot(root, lruCap),
		pairToID:    pairToID,
		lruCap:      lruCap,
		maxTokenLen: maxTokenLen,
	}
	return e, nil
}

func readNode(r io.Reader) (*radixtree.Node, error) {
	prefixLen, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	prefix := make([]byte, prefixLen)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, err
	}
	value, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	n := radixtree.NewRawNode(prefix, value)

	numChildren, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < numChildren; i++ {
		var keyBuf [1]byte
		if _, err := io.ReadFull(r, keyBuf[:]); err != nil {
			return nil, err
		}
		child, err := readNode(r)
		if err != nil {
			return nil, err
		}
		n.SetChild(keyBuf[0], child)
	}
	return n, nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeInt32(w io.Writer, v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Package streaming adapts a whole-buffer encoder into a Push/Flush state
// machine suitable for feeding a byte stream through incrementally: a
// chunk arrives, whatever prefix of it can never be reshaped by bytes
// still to come is returned as finished ids, and the rest waits for more
// input.
package streaming

import "github.com/gobpe/rbpe/internal/engine"

// Encoder tokenizes a complete byte slice against an engine's current
// vocabulary. (*rbpe.Tokenizer).Encode satisfies this.
type Encoder func(text []byte) []int

// State holds the bytes not yet safely committed to an id. A byte range
// is safe to commit once the longest learned token is too short to
// possibly span from inside it into bytes that have not arrived yet.
type State struct {
	eng    *engine.Engine
	encode Encoder

	// safetyMargin is how many trailing bytes of pending must always be
	// withheld: one short of the longest token length, since a token of
	// that length starting any earlier could still absorb a byte beyond
	// the current buffer.
	safetyMargin int

	pending []byte
}

// New returns a streaming encoder bound to eng's current vocabulary,
// using encode to tokenize buffered bytes. Rebuild it after further
// training, since safetyMargin is captured from eng.MaxTokenLen() at
// construction time.
func New(eng *engine.Engine, encode Encoder) *State {
	margin := eng.MaxTokenLen() - 1
	if margin < 0 {
		margin = 0
	}
	return &State{eng: eng, encode: encode, safetyMargin: margin}
}

// Push appends chunk to the pending bytes and returns whatever ids are
// now final. Bytes behind those ids are dropped from pending; everything
// else, including the trailing safety margin, waits for the next Push or
// a final Flush.
func (st *State) Push(chunk []byte) []int {
	if len(chunk) > 0 {
		st.pending = append(st.pending, chunk...)
	}

	committable := len(st.pending) - st.safetyMargin
	if committable <= 0 {
		return nil
	}

	ids, byteLen := st.commitUpTo(committable)
	if byteLen > 0 {
		st.pending = st.pending[byteLen:]
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// Flush encodes and returns every byte still pending, leaving the state
// empty and ready for reuse. Call it once after the last Push to drain
// the safety margin that Push always withholds.
func (st *State) Flush() []int {
	if len(st.pending) == 0 {
		return nil
	}
	ids := st.encode(st.pending)
	st.pending = st.pending[:0]
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// commitUpTo encodes the pending buffer and walks the resulting ids from
// the front, accepting each one whose byte width still fits within
// limit. It stops at the first id that would overrun limit rather than
// truncating one, since a token's bytes always commit as a whole.
func (st *State) commitUpTo(limit int) (ids []int, byteLen int) {
	tokens := st.encode(st.pending)

	committed := make([]int, 0, len(tokens))
	total := 0
	for _, id := range tokens {
		width := len(st.eng.Bytes(int32(id)))
		if total+width > limit {
			break
		}
		committed = append(committed, id)
		total += width
	}
	return committed, total
}

package streaming

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gobpe/rbpe/internal/engine"
)

// longestMatchEncode is a small standalone greedy encoder used only by
// these tests, so the streaming tests don't need to import the rbpe
// package's encodeRadix (which would be a circular import).
func longestMatchEncode(e *engine.Engine, text []byte) []int {
	n := len(text)
	ids := make([]int, 0, n)
	pos := 0
	for pos < n {
		maxLen := e.MaxTokenLen()
		if maxLen > n-pos {
			maxLen = n - pos
		}
		found := false
		for l := maxLen; l >= 1; l-- {
			if id, ok := e.Tree.GetExact(text[pos : pos+l]); ok {
				ids = append(ids, int(id))
				pos += l
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, int(text[pos]))
			pos++
		}
	}
	return ids
}

func TestPushThenFlushMatchesWholeEncode(t *testing.T) {
	e := engine.New(16)
	require.NoError(t, e.Train([]byte("ababab"), 257, slog.Default()))
	encode := func(b []byte) []int { return longestMatchEncode(e, b) }

	whole := encode([]byte("ababab"))

	st := New(e, encode)
	var got []int
	for _, c := range []byte("ababab") {
		got = append(got, st.Push([]byte{c})...)
	}
	got = append(got, st.Flush()...)

	require.Equal(t, whole, got)
}

func TestPushWithholdsBytesThatCouldStillMerge(t *testing.T) {
	e := engine.New(16)
	require.NoError(t, e.Train([]byte("ababab"), 257, slog.Default()))
	ab, ok := e.MergeOf('a', 'b')
	require.True(t, ok)

	encode := func(b []byte) []int { return longestMatchEncode(e, b) }
	st := New(e, encode)

	require.Nil(t, st.Push([]byte("a")))
	require.Nil(t, st.Push([]byte("b")))

	flushed := st.Flush()
	require.Equal(t, []int{int(ab)}, flushed)
}

func TestPushEmitsImmediatelyWhenNoMergesLearned(t *testing.T) {
	e := engine.New(16)
	encode := func(b []byte) []int { return longestMatchEncode(e, b) }
	st := New(e, encode)

	require.Equal(t, []int{'x'}, st.Push([]byte("x")))
	require.Nil(t, st.Flush())
}

func TestFlushOnEmptyBufferReturnsNil(t *testing.T) {
	e := engine.New(16)
	encode := func(b []byte) []int { return longestMatchEncode(e, b) }
	st := New(e, encode)
	require.Nil(t, st.Flush())
}

func TestPushAcrossManySmallChunksReassemblesExactly(t *testing.T) {
	e := engine.New(16)
	corpus := []byte("the quick brown fox the quick fox jumps")
	require.NoError(t, e.Train(corpus, 290, slog.Default()))
	encode := func(b []byte) []int { return longestMatchEncode(e, b) }

	text := []byte("the quick brown fox jumps")
	whole := encode(text)

	st := New(e, encode)
	var got []int
	for _, c := range text {
		got = append(got, st.Push([]byte{c})...)
	}
	got = append(got, st.Flush()...)

	require.Equal(t, whole, got)
}

package rankencode

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gobpe/rbpe/internal/engine"
)

func decode(e *engine.Engine, ids []int) []byte {
	var out []byte
	for _, id := range ids {
		out = append(out, e.Bytes(int32(id))...)
	}
	return out
}

func TestEncodeEmptyInput(t *testing.T) {
	e := engine.New(16)
	enc := New(e)
	require.Nil(t, enc.Encode(nil))
}

func TestEncodeFallsBackToRawBytesWithoutMerges(t *testing.T) {
	e := engine.New(16)
	enc := New(e)

	ids := enc.Encode([]byte("xyz"))
	require.Equal(t, []int{'x', 'y', 'z'}, ids)
	require.Equal(t, []byte("xyz"), decode(e, ids))
}

func TestEncodeAppliesLowestRankMergeFirst(t *testing.T) {
	e := engine.New(16)
	require.NoError(t, e.Train([]byte("ababab"), 257, slog.Default()))

	enc := New(e)
	ids := enc.Encode([]byte("ababab"))
	require.Equal(t, []byte("ababab"), decode(e, ids))

	ab, ok := e.MergeOf('a', 'b')
	require.True(t, ok)
	for _, id := range ids {
		require.Equal(t, int(ab), id)
	}
}

func TestEncodeRoundTripsHierarchicalMerges(t *testing.T) {
	e := engine.New(16)
	require.NoError(t, e.Train([]byte("aaaa"), 258, slog.Default()))

	enc := New(e)
	ids := enc.Encode([]byte("aaaaaaaa"))
	require.Equal(t, []byte("aaaaaaaa"), decode(e, ids))
}

func TestEncodeIsDeterministic(t *testing.T) {
	e := engine.New(16)
	require.NoError(t, e.Train([]byte("the quick brown fox the quick fox"), 280, slog.Default()))

	enc := New(e)
	first := enc.Encode([]byte("the quick brown fox"))
	second := enc.Encode([]byte("the quick brown fox"))
	require.Equal(t, first, second)
}

func TestEncodeReusesScratchAcrossCalls(t *testing.T) {
	e := engine.New(16)
	require.NoError(t, e.Train([]byte("ababab"), 257, slog.Default()))
	enc := New(e)

	short := enc.Encode([]byte("ab"))
	long := enc.Encode([]byte("abababababab"))
	require.Equal(t, []byte("ab"), decode(e, short))
	require.Equal(t, []byte("abababababab"), decode(e, long))
}

func TestLookupFindMissingPair(t *testing.T) {
	l := NewLookup(nil, 256)
	_, _, ok := l.Find(1, 2)
	require.False(t, ok)
}

func TestLookupFindUsesFallbackBeyondFastRange(t *testing.T) {
	merges := []engine.Merge{{A: 5000, B: 5001, ID: 5002}}
	l := NewLookup(merges, 256)
	rank, id, ok := l.Find(5000, 5001)
	require.True(t, ok)
	require.Equal(t, int32(0), rank)
	require.Equal(t, int32(5002), id)
}

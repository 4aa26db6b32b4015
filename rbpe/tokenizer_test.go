package rbpe

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTripsSingleBytes(t *testing.T) {
	tok := New(0, nil)
	ids := tok.Encode([]byte("xyz"))
	require.Equal(t, []int{'x', 'y', 'z'}, ids)
	require.Equal(t, []byte("xyz"), tok.Decode(ids))
}

func TestTrainMergesMostFrequentPairFirst(t *testing.T) {
	tok := New(0, nil)
	require.NoError(t, tok.Train([]byte("ababab"), 257))
	require.Equal(t, 257, tok.VocabSize())

	ids := tok.Encode([]byte("ababab"))
	require.Equal(t, []byte("ababab"), tok.Decode(ids))
	require.Len(t, ids, 3)
}

func TestTrainHierarchicalMergesRoundTrip(t *testing.T) {
	tok := New(0, nil)
	require.NoError(t, tok.Train([]byte("aaaa"), 258))

	ids := tok.Encode([]byte("aaaaaaaa"))
	require.Equal(t, []byte("aaaaaaaa"), tok.Decode(ids))
}

func TestTrainRejectsVocabSizeBelowMinimum(t *testing.T) {
	tok := New(0, nil)
	err := tok.Train([]byte("abc"), 10)
	require.ErrorIs(t, err, ErrVocabTooSmall)
}

func TestTrainPremergesTechTermsBeforeFirstCorpusMerge(t *testing.T) {
	tok := New(0, []string{"term"})
	require.NoError(t, tok.Train([]byte("term term term other text here"), 280))

	ids := tok.Encode([]byte("term"))
	require.Len(t, ids, 1)
	require.Equal(t, []byte("term"), tok.Decode(ids))
}

func TestTrainDoesNotRepremergeOnSecondCall(t *testing.T) {
	tok := New(0, []string{"term"})
	require.NoError(t, tok.Train([]byte("term term term"), 270))
	sizeAfterFirst := tok.VocabSize()

	require.NoError(t, tok.Train([]byte("term term term more text padding here"), sizeAfterFirst+5))
	// "term" must still decode to itself after the second Train call.
	ids := tok.Encode([]byte("term"))
	require.Equal(t, []byte("term"), tok.Decode(ids))
}

func TestDecodeOfOutOfRangeIDFallsBackToByteCast(t *testing.T) {
	tok := New(0, nil)
	got := tok.Decode([]int{-1})
	id := -1
	require.Equal(t, []byte{byte(id)}, got)
}

func TestDecodeStrictRejectsNegativeID(t *testing.T) {
	tok := New(0, nil)
	_, err := tok.DecodeStrict([]int{-1})
	require.ErrorIs(t, err, ErrNegativeTokenID)
}

func TestDecodeStrictAcceptsValidIDs(t *testing.T) {
	tok := New(0, nil)
	out, err := tok.DecodeStrict([]int{'a', 'b'})
	require.NoError(t, err)
	require.Equal(t, []byte("ab"), out)
}

func TestEncodeWithDropoutDisabledFallsBackToEncode(t *testing.T) {
	tok := New(0, nil)
	require.NoError(t, tok.Train([]byte("ababab"), 257))

	rng := rand.New(rand.NewSource(1))
	plain := tok.Encode([]byte("ababab"))
	dropped := tok.EncodeWithDropout([]byte("ababab"), 1.0, rng)
	require.Equal(t, plain, dropped)
}

func TestEncodeWithDropoutZeroProbMatchesLongestMatch(t *testing.T) {
	tok := NewWithOptions(Options{MaxDepth: 8})
	require.NoError(t, tok.Train([]byte("ababab"), 257))

	rng := rand.New(rand.NewSource(1))
	ids := tok.EncodeWithDropout([]byte("ababab"), 0.0, rng)
	require.Equal(t, []byte("ababab"), tok.Decode(ids))
	require.Len(t, ids, 3)
}

func TestEncodeWithDropoutAlwaysFallsBackToSingleBytes(t *testing.T) {
	tok := NewWithOptions(Options{MaxDepth: 8})
	require.NoError(t, tok.Train([]byte("ababab"), 257))

	rng := rand.New(rand.NewSource(1))
	ids := tok.EncodeWithDropout([]byte("ababab"), 1.0, rng)
	require.Equal(t, []byte("ababab"), tok.Decode(ids))
	require.Len(t, ids, 6)
}

func TestChunkWithOverlapRejectsInvalidRange(t *testing.T) {
	tok := New(0, nil)
	_, err := tok.ChunkWithOverlap([]byte("abc"), 2, 2)
	require.ErrorIs(t, err, ErrOverlapRange)

	_, err = tok.ChunkWithOverlap([]byte("abc"), 2, -1)
	require.ErrorIs(t, err, ErrOverlapRange)
}

func TestChunkWithOverlapEmptyTextReturnsNil(t *testing.T) {
	tok := New(0, nil)
	chunks, err := tok.ChunkWithOverlap(nil, 4, 1)
	require.NoError(t, err)
	require.Nil(t, chunks)
}

func TestChunkWithOverlapMatchesSpecExample(t *testing.T) {
	tok := New(0, nil)
	// Ten single-byte tokens, chunk_size=4, overlap=1: chunks of length
	// 4, 4, 4, 1 starting at offsets 0, 3, 6, 9.
	chunks, err := tok.ChunkWithOverlap([]byte("0123456789"), 4, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	require.Equal(t, []int{'0', '1', '2', '3'}, chunks[0])
	require.Equal(t, []int{'3', '4', '5', '6'}, chunks[1])
	require.Equal(t, []int{'6', '7', '8', '9'}, chunks[2])
	require.Equal(t, []int{'9'}, chunks[3])
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tok := New(0, nil)
	require.NoError(t, tok.Train([]byte("the quick brown fox the quick fox jumps over"), 290))

	dir := t.TempDir()
	path := filepath.Join(dir, "tok.bpe")
	require.NoError(t, tok.Save(path))

	loaded := New(0, nil)
	require.NoError(t, loaded.Load(path))

	require.Equal(t, tok.VocabSize(), loaded.VocabSize())
	text := []byte("the quick fox")
	require.Equal(t, tok.Encode(text), loaded.Encode(text))
}

func TestLoadOnCorruptFileLeavesExistingStateUntouched(t *testing.T) {
	tok := New(0, nil)
	require.NoError(t, tok.Train([]byte("ababab"), 257))
	before := tok.VocabSize()

	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.bpe")
	require.NoError(t, os.WriteFile(path, []byte("not a tokenizer file"), 0o644))

	err := tok.Load(path)
	require.ErrorIs(t, err, ErrCorrupt)
	require.Equal(t, before, tok.VocabSize())
}

func TestEncodeBatchPreservesOrder(t *testing.T) {
	tok := New(0, nil)
	require.NoError(t, tok.Train([]byte("ababab"), 257))

	texts := [][]byte{[]byte("ab"), []byte("ababab"), []byte("a")}
	out, err := tok.EncodeBatch(context.Background(), texts, 2)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, text := range texts {
		require.Equal(t, tok.Encode(text), out[i])
	}
}

func TestNewStreamingEncoderRoundTripsViaPushFlush(t *testing.T) {
	tok := New(0, nil)
	require.NoError(t, tok.Train([]byte("ababab"), 257))

	text := []byte("ababab")
	whole := tok.Encode(text)

	st := tok.NewStreamingEncoder()
	var got []int
	for _, c := range text {
		got = append(got, st.Push([]byte{c})...)
	}
	got = append(got, st.Flush()...)
	require.Equal(t, whole, got)
}

func TestNewRankEncoderRoundTrips(t *testing.T) {
	tok := New(0, nil)
	require.NoError(t, tok.Train([]byte("ababab"), 257))

	enc := tok.NewRankEncoder()
	ids := enc.Encode([]byte("ababab"))
	require.Equal(t, []byte("ababab"), tok.Decode(ids))
}

func TestRoundTripRandomBytes(t *testing.T) {
	tok := New(0, nil)
	fixture := make([]byte, 4096)
	rng := rand.New(rand.NewSource(42))
	rng.Read(fixture)
	require.NoError(t, tok.Train(fixture, 400))

	for i := 0; i < 50; i++ {
		n := rng.Intn(256)
		s := make([]byte, n)
		rng.Read(s)
		ids := tok.Encode(s)
		require.Equal(t, s, tok.Decode(ids))
	}
}

func TestEncodeDuringConcurrentReadsIsSafe(t *testing.T) {
	tok := New(0, nil)
	require.NoError(t, tok.Train([]byte("the quick brown fox the quick fox"), 280))

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				tok.Encode([]byte("the quick fox"))
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}

package batchencode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunEmptyInput(t *testing.T) {
	out, err := Run(context.Background(), nil, 4, func(b []byte) []int { return []int{len(b)} })
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestRunPreservesOrder(t *testing.T) {
	texts := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc"), []byte("dddd"), []byte("e")}
	out, err := Run(context.Background(), texts, 2, func(b []byte) []int { return []int{len(b)} })
	require.NoError(t, err)
	require.Equal(t, [][]int{{1}, {2}, {3}, {4}, {1}}, out)
}

func TestRunDefaultsWorkersWhenNonPositive(t *testing.T) {
	texts := [][]byte{[]byte("x"), []byte("yy")}
	out, err := Run(context.Background(), texts, 0, func(b []byte) []int { return []int{len(b)} })
	require.NoError(t, err)
	require.Equal(t, [][]int{{1}, {2}}, out)
}

func TestRunClampsWorkersToInputSize(t *testing.T) {
	texts := [][]byte{[]byte("x")}
	out, err := Run(context.Background(), texts, 50, func(b []byte) []int { return []int{len(b)} })
	require.NoError(t, err)
	require.Equal(t, [][]int{{1}}, out)
}

func TestRunReturnsErrOnAlreadyCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	texts := [][]byte{[]byte("a"), []byte("b")}
	out, err := Run(ctx, texts, 2, func(b []byte) []int { return []int{len(b)} })
	require.Error(t, err)
	require.Nil(t, out)
}

func TestRunStopsEarlyOnMidBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	texts := make([][]byte, 100)
	for i := range texts {
		texts[i] = []byte("x")
	}

	called := 0
	out, err := Run(ctx, texts, 1, func(b []byte) []int {
		called++
		if called == 5 {
			cancel()
		}
		return []int{len(b)}
	})
	require.Error(t, err)
	require.Nil(t, out)
}

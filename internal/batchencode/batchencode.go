// Package batchencode fans a slice of independent encode jobs out across
// a bounded pool of goroutines and collects results back in the caller's
// original order.
package batchencode

import (
	"context"
	"runtime"
	"sync"
)

// Encoder encodes one document to ids. Implementations must be safe for
// concurrent use by multiple goroutines; (*rbpe.Tokenizer).Encode is.
type Encoder func(text []byte) []int

// Run encodes each of texts with encode, using up to workers goroutines
// concurrently. workers <= 0 defaults to runtime.GOMAXPROCS(0). Results
// are returned in the same order as texts. Run returns ctx.Err() without
// completing remaining work if ctx is canceled mid-batch.
func Run(ctx context.Context, texts [][]byte, workers int, encode Encoder) ([][]int, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(texts) {
		workers = len(texts)
	}

	results := make([][]int, len(texts))
	jobs := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results[i] = encode(texts[i])
			}
		}()
	}

	for i := range texts {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

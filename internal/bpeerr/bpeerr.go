// Package bpeerr holds the sentinel errors shared between the engine and
// the public rbpe facade, so callers can errors.Is against a single
// identity regardless of which layer raised it.
//
// Usage errors and i/o errors are returned directly to the caller;
// corruption errors abort Load transactionally, leaving prior state
// untouched.
package bpeerr

import "github.com/pkg/errors"

var (
	// ErrEmptyCorpus is a usage error: Train was called with no bytes.
	ErrEmptyCorpus = errors.New("bpe: corpus is empty")
	// ErrVocabTooSmall is a usage error: vocab_size < 256.
	ErrVocabTooSmall = errors.New("bpe: vocab_size must be >= 256")
	// ErrOverlapRange is a usage error: overlap is not in [0, chunk_size).
	ErrOverlapRange = errors.New("bpe: overlap must satisfy 0 <= overlap < chunk_size")
	// ErrNegativeTokenID is a usage error raised by DecodeStrict.
	ErrNegativeTokenID = errors.New("bpe: token id must be non-negative")
	// ErrCorrupt marks a deserialized file that fails structural
	// validation (dangling merge reference, missing byte entries, ...).
	ErrCorrupt = errors.New("bpe: corrupt tokenizer file")
)

package rbpe

import "github.com/gobpe/rbpe/internal/bpeerr"

// Sentinel errors re-exported from the internal engine so callers can
// errors.Is against a stable identity without importing internal packages.
var (
	ErrEmptyCorpus     = bpeerr.ErrEmptyCorpus
	ErrVocabTooSmall   = bpeerr.ErrVocabTooSmall
	ErrOverlapRange    = bpeerr.ErrOverlapRange
	ErrNegativeTokenID = bpeerr.ErrNegativeTokenID
	ErrCorrupt         = bpeerr.ErrCorrupt
)

package rankencode

// candidate is one pending merge opportunity: the left list position of
// the pair it would join and the two tokens found there, the rank (lower merges first) of the pair occupying them at
// the time it was queued, and the liveness versions that must still match
// when it is popped.
type candidate struct {
	rank       int32
	pos        int
	leftToken  int32
	rightToken int32
	verL, verR int
}

// candidateQueue pops pending merges in ascending rank order, breaking
// ties by position. Since a candidate's rank is bounded by the number of
// learned merges, candidates are kept in rank-indexed buckets rather than
// a comparison-based heap: popping scans forward from the lowest bucket
// known to hold anything, and a push that lands below that mark pulls it
// back down.
type candidateQueue struct {
	buckets [][]candidate
	lowest  int
	count   int
}

func newCandidateQueue(maxRank int) *candidateQueue {
	return &candidateQueue{buckets: make([][]candidate, maxRank+1)}
}

func (q *candidateQueue) Len() int { return q.count }

// Push files c under its rank bucket, growing the bucket slice if a rank
// higher than any seen so far shows up. Encode sizes the queue from its
// Lookup's MaxRank and a Lookup does not change after NewLookup, so in
// that use the growth branch is never taken.
func (q *candidateQueue) Push(c candidate) {
	rank := int(c.rank)
	if rank >= len(q.buckets) {
		grown := make([][]candidate, rank+1)
		copy(grown, q.buckets)
		q.buckets = grown
	}

	bucket := q.buckets[rank]
	insertAt := len(bucket)
	for i := len(bucket) - 1; i >= 0; i-- {
		if bucket[i].pos <= c.pos {
			insertAt = i + 1
			break
		}
		insertAt = i
	}
	bucket = append(bucket, candidate{})
	copy(bucket[insertAt+1:], bucket[insertAt:])
	bucket[insertAt] = c
	q.buckets[rank] = bucket

	if rank < q.lowest {
		q.lowest = rank
	}
	q.count++
}

// Pop returns the lowest-rank, lowest-position candidate filed so far.
func (q *candidateQueue) Pop() (candidate, bool) {
	for q.lowest < len(q.buckets) && len(q.buckets[q.lowest]) == 0 {
		q.lowest++
	}
	if q.lowest >= len(q.buckets) {
		return candidate{}, false
	}

	bucket := q.buckets[q.lowest]
	c := bucket[0]
	q.buckets[q.lowest] = bucket[1:]
	q.count--
	return c, true
}

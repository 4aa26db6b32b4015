package rankencode

import "github.com/gobpe/rbpe/internal/engine"

// pairInfo packs a merge's rank (its position in the training order, so
// lower always merges first) and destination id together.
type pairInfo struct {
	rank int32
	id   int32
}

// Lookup answers "is (a, b) a learned merge, and if so at what rank and
// into what id" in O(1) for small ids and O(1) amortized map lookup
// otherwise: a dense 2D array covers ids below fastSize, and a map
// handles anything above that without paying for a huge dense array.
type Lookup struct {
	fast     [][]pairInfo
	fastSize int32
	fallback map[pairKey]pairInfo
	maxRank  int
}

type pairKey struct{ a, b int32 }

const defaultFastSize = 2048

// NewLookup builds a Lookup from an engine's learned merges, where a
// merge's rank is simply its index in the training order.
func NewLookup(merges []engine.Merge, vocabSize int) *Lookup {
	fastSize := int32(defaultFastSize)
	if int32(vocabSize) < fastSize {
		fastSize = int32(vocabSize)
	}
	if fastSize < 0 {
		fastSize = 0
	}

	fast := make([][]pairInfo, fastSize)
	for i := range fast {
		row := make([]pairInfo, fastSize)
		for j := range row {
			row[j] = pairInfo{rank: -1}
		}
		fast[i] = row
	}

	fallback := make(map[pairKey]pairInfo, len(merges)/4+1)

	for rank, m := range merges {
		info := pairInfo{rank: int32(rank), id: m.ID}
		if m.A < fastSize && m.B < fastSize && m.A >= 0 && m.B >= 0 {
			fast[m.A][m.B] = info
		} else {
			fallback[pairKey{m.A, m.B}] = info
		}
	}

	return &Lookup{fast: fast, fastSize: fastSize, fallback: fallback, maxRank: len(merges) - 1}
}

// MaxRank returns the highest rank any learned merge holds, or -1 if
// none were learned. Callers size a rank-indexed structure with this.
func (l *Lookup) MaxRank() int { return l.maxRank }

// Find returns the merge rank and destination id for pair (a, b), if any
// merge learned that pair.
func (l *Lookup) Find(a, b int32) (rank int32, id int32, ok bool) {
	if a >= 0 && a < l.fastSize && b >= 0 && b < l.fastSize {
		info := l.fast[a][b]
		if info.rank < 0 {
			return 0, 0, false
		}
		return info.rank, info.id, true
	}
	info, ok := l.fallback[pairKey{a, b}]
	if !ok {
		return 0, 0, false
	}
	return info.rank, info.id, true
}

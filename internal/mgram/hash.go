package mgram

import "github.com/ostafen/lmtrie/internal/wordindex"

func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// CombineHash folds a word id into the hash of the words that follow it.
func CombineHash(seed uint64, id wordindex.WordID) uint64 {
	return seed ^ (mix64(uint64(id)) + 0x9e3779b97f4a7c15 + (seed << 6) + (seed >> 2))
}

// WordsHash hashes ids starting from the last word, so that the hash of
// every suffix is computed along the way.
func WordsHash(ids []wordindex.WordID) uint64 {
	if len(ids) == 0 {
		return 0
	}

	h := mix64(uint64(ids[len(ids)-1]))
	for i := len(ids) - 2; i >= 0; i-- {
		h = CombineHash(h, ids[i])
	}
	return h
}

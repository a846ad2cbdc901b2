package trie

import (
	"github.com/ostafen/lmtrie/internal/cache"
	"github.com/ostafen/lmtrie/pkg/arrays"
)

const (
	ZeroBackOffWeight    float32 = 0
	ZeroLogProbWeight    float32 = -99
	UnkWordLogProbWeight float32 = -10

	// FirstValidContextID is the smallest context id of an m-gram with
	// level greater than one. Unigram context ids are their word ids.
	FirstValidContextID uint64 = 1

	DefaultWordsPerBucket = 4
)

type Options struct {
	Layout Layout

	// BitmapCache enables the per level hash pre-filter for the layouts
	// that benefit from it.
	BitmapCache            bool
	CacheFalsePositiveRate float64

	// WordsPerBucket is the average number of m-grams per hash bucket.
	WordsPerBucket int

	Growth arrays.Strategy

	// UseInterpolationSearch replaces binary search in the word to context layout.
	UseInterpolationSearch bool

	// Probabilities not greater than ZeroLogProbWeight are left out of
	// cumulative sums.
	ZeroLogProbWeight    float32
	UnkWordLogProbWeight float32
	ZeroBackOffWeight    float32
}

func DefaultOptions() Options {
	return Options{
		Layout:                 W2CArray,
		BitmapCache:            true,
		CacheFalsePositiveRate: cache.DefaultFalsePositiveRate,
		WordsPerBucket:         DefaultWordsPerBucket,
		Growth:                 arrays.DefaultStrategy,
		ZeroLogProbWeight:      ZeroLogProbWeight,
		UnkWordLogProbWeight:   UnkWordLogProbWeight,
		ZeroBackOffWeight:      ZeroBackOffWeight,
	}
}

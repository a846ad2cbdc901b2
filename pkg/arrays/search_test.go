package arrays_test

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/ostafen/lmtrie/pkg/arrays"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ctx  uint64
	word uint64
}

func keyOf(e *entry) uint64 { return e.ctx }

func keysOf(e *entry) (uint64, uint64) { return e.ctx, e.word }

func genSorted(n int, step int) []entry {
	r := rand.New(rand.NewSource(42))

	a := make([]entry, n)
	var v uint64
	for i := range a {
		v += uint64(1 + r.Intn(step))
		a[i] = entry{ctx: v, word: uint64(r.Intn(10))}
	}
	return a
}

func TestBinarySearch(t *testing.T) {
	a := genSorted(1000, 7)

	for i := range a {
		idx, found := arrays.BinarySearch(a, 0, len(a)-1, a[i].ctx, keyOf)
		require.True(t, found)
		require.Equal(t, a[idx].ctx, a[i].ctx)
	}

	for key := uint64(0); key <= a[len(a)-1].ctx+2; key++ {
		_, found := arrays.BinarySearch(a, 0, len(a)-1, key, keyOf)
		contains := slices.ContainsFunc(a, func(e entry) bool { return e.ctx == key })
		require.Equal(t, contains, found, "key %d", key)
	}
}

func TestInterpolationSearch(t *testing.T) {
	for _, step := range []int{1, 3, 50} {
		a := genSorted(500, step)

		for key := uint64(0); key <= a[len(a)-1].ctx+2; key++ {
			idx, found := arrays.InterpolationSearch(a, 0, len(a)-1, key, keyOf)
			bIdx, bFound := arrays.BinarySearch(a, 0, len(a)-1, key, keyOf)

			require.Equal(t, bFound, found, "key %d", key)
			if found {
				require.Equal(t, key, a[idx].ctx)
				require.Equal(t, bIdx, idx)
			}
		}
	}
}

func TestInterpolationSearchSingleElement(t *testing.T) {
	a := []entry{{ctx: 5}}

	idx, found := arrays.InterpolationSearch(a, 0, 0, uint64(5), keyOf)
	require.True(t, found)
	require.Equal(t, 0, idx)

	_, found = arrays.InterpolationSearch(a, 0, 0, uint64(4), keyOf)
	require.False(t, found)

	_, found = arrays.InterpolationSearch(a, 0, 0, uint64(6), keyOf)
	require.False(t, found)
}

func TestBinarySearch2(t *testing.T) {
	var a []entry
	for ctx := uint64(1); ctx <= 20; ctx++ {
		for word := uint64(2); word < 12; word += 3 {
			a = append(a, entry{ctx: ctx, word: word})
		}
	}

	for i := range a {
		idx, found := arrays.BinarySearch2(a, 0, len(a)-1, a[i].ctx, a[i].word, keysOf)
		require.True(t, found)
		require.Equal(t, i, idx)
	}

	_, found := arrays.BinarySearch2(a, 0, len(a)-1, uint64(3), uint64(3), keysOf)
	require.False(t, found)

	_, found = arrays.BinarySearch2(a, 0, len(a)-1, uint64(21), uint64(2), keysOf)
	require.False(t, found)
}

func TestSearchSubRange(t *testing.T) {
	a := []entry{{ctx: 1}, {ctx: 3}, {ctx: 5}, {ctx: 7}}

	_, found := arrays.BinarySearch(a, 2, 3, uint64(3), keyOf)
	require.False(t, found)

	idx, found := arrays.BinarySearch(a, 2, 3, uint64(7), keyOf)
	require.True(t, found)
	require.Equal(t, 3, idx)
}

func TestSearchInvalidBounds(t *testing.T) {
	a := []entry{{ctx: 1}, {ctx: 2}}

	require.Panics(t, func() { arrays.BinarySearch(a, -1, 1, uint64(1), keyOf) })
	require.Panics(t, func() { arrays.BinarySearch(a, 1, 0, uint64(1), keyOf) })
	require.Panics(t, func() { arrays.BinarySearch(a, 0, 2, uint64(1), keyOf) })
	require.Panics(t, func() { arrays.InterpolationSearch(a, 1, 0, uint64(1), keyOf) })
	require.Panics(t, func() { arrays.BinarySearch2(a, 2, 1, uint64(1), uint64(0), keysOf) })
}

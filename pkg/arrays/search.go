// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package arrays

import (
	"cmp"
	"fmt"
	"slices"
)

// Integer is the key constraint of InterpolationSearch.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint16 | ~uint32 | ~uint64
}

func checkBounds(n, low, high int) {
	if low < 0 || low > high || high >= n {
		panic(fmt.Sprintf("arrays: invalid search bounds [%d, %d] for length %d", low, high, n))
	}
}

// BinarySearch looks for key within a[low..high], which must be sorted by keyOf.
func BinarySearch[T any, K cmp.Ordered](a []T, low, high int, key K, keyOf func(*T) K) (int, bool) {
	checkBounds(len(a), low, high)

	for low <= high {
		mid := int(uint(low+high) >> 1)

		switch k := keyOf(&a[mid]); {
		case k < key:
			low = mid + 1
		case k > key:
			high = mid - 1
		default:
			return mid, true
		}
	}
	return -1, false
}

// BinarySearch2 looks for the composite key (k1, k2) within a[low..high],
// which must be sorted by k1 first and then by k2.
func BinarySearch2[T any, K1, K2 cmp.Ordered](
	a []T,
	low, high int,
	k1 K1,
	k2 K2,
	keysOf func(*T) (K1, K2),
) (int, bool) {
	checkBounds(len(a), low, high)

	for low <= high {
		mid := int(uint(low+high) >> 1)

		x1, x2 := keysOf(&a[mid])
		c := cmp.Compare(x1, k1)
		if c == 0 {
			c = cmp.Compare(x2, k2)
		}

		switch {
		case c < 0:
			low = mid + 1
		case c > 0:
			high = mid - 1
		default:
			return mid, true
		}
	}
	return -1, false
}

// SearchFunc is BinarySearch for keys that are only comparable through a
// function. compare returns the order of the element relative to the key.
func SearchFunc[T any](a []T, low, high int, compare func(*T) int) (int, bool) {
	checkBounds(len(a), low, high)

	for low <= high {
		mid := int(uint(low+high) >> 1)

		switch c := compare(&a[mid]); {
		case c < 0:
			low = mid + 1
		case c > 0:
			high = mid - 1
		default:
			return mid, true
		}
	}
	return -1, false
}

// InterpolationSearch has the same contract as BinarySearch but probes the
// position obtained by interpolating key between the bound values.
// It only pays off on uniformly distributed keys.
func InterpolationSearch[T any, K Integer](a []T, low, high int, key K, keyOf func(*T) K) (int, bool) {
	checkBounds(len(a), low, high)

	lv, uv := keyOf(&a[low]), keyOf(&a[high])
	for lv < key && key <= uv {
		off := float64(key-lv) * float64(high-low) / float64(uv-lv)
		mid := low + int(off)

		switch mv := keyOf(&a[mid]); {
		case mv < key:
			low = mid + 1
			lv = keyOf(&a[low])
		case mv > key:
			high = mid - 1
			uv = keyOf(&a[high])
		default:
			return mid, true
		}
	}

	if lv == key {
		return low, true
	}
	return -1, false
}

// Sort performs a stable in-place sort of a.
func Sort[T any](a []T, cmp func(x, y T) int) {
	slices.SortStableFunc(a, cmp)
}

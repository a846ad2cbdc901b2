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
package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bloom/v3"
)

const DefaultFalsePositiveRate = 0.01

var ErrInvalidRate = errors.New("cache: false positive rate must be within (0, 1)")

// BitmapHashCache answers whether an m-gram hash may have been registered.
// It never reports a registered hash as absent.
type BitmapHashCache struct {
	filter *bloom.BloomFilter
	count  uint
}

// New sizes a cache for count hashes at the given false positive rate.
func New(count int, falsePositiveRate float64) (*BitmapHashCache, error) {
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidRate, falsePositiveRate)
	}

	return &BitmapHashCache{
		filter: bloom.NewWithEstimates(uint(max(count, 1)), falsePositiveRate),
	}, nil
}

func key(hash uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], hash)
	return buf[:]
}

// Add registers an m-gram hash.
func (c *BitmapHashCache) Add(hash uint64) {
	c.filter.Add(key(hash))
	c.count++
}

// MayContain reports whether hash may have been added.
func (c *BitmapHashCache) MayContain(hash uint64) bool {
	return c.filter.Test(key(hash))
}

type Stats struct {
	Bits        uint
	Hashes      uint
	Added       uint
	Bytes       int64
	FillRatio   float64
	EstimatedFP float64
}

func (c *BitmapHashCache) Stats() Stats {
	bits := c.filter.Cap()
	filled := c.filter.BitSet().Count()
	k, n := float64(c.filter.K()), float64(c.count)

	return Stats{
		Bits:        bits,
		Hashes:      c.filter.K(),
		Added:       c.count,
		Bytes:       int64(bits+7) / 8,
		FillRatio:   float64(filled) / float64(bits),
		EstimatedFP: math.Pow(1-math.Exp(-k*n/float64(bits)), k),
	}
}

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
	"errors"
	"fmt"
	"math"
)

// MaxCapacity bounds the number of elements a DynArray may hold.
// Element indexes are stored as uint32 handles by the trie backends.
const MaxCapacity = math.MaxUint32

var ErrResourceExhausted = errors.New("arrays: resource exhausted")

// Strategy computes the capacity an array grows to once it is full.
type Strategy interface {
	Next(capacity int) int
}

// Linear grows the capacity by a fixed amount.
type Linear struct {
	Increment int
}

func (s Linear) Next(capacity int) int {
	return capacity + max(s.Increment, 1)
}

// Doubling doubles the capacity, growing by at least MinIncrement.
type Doubling struct {
	MinIncrement int
}

func (s Doubling) Next(capacity int) int {
	return capacity + max(capacity, s.MinIncrement, 1)
}

// Factor multiplies the capacity by Factor, growing by at least MinIncrement.
type Factor struct {
	Factor       float64
	MinIncrement int
}

func (s Factor) Next(capacity int) int {
	inc := int(float64(capacity)*s.Factor) - capacity
	return capacity + max(inc, s.MinIncrement, 1)
}

// DefaultStrategy is the growth policy used for buckets when none is configured.
var DefaultStrategy Strategy = Factor{Factor: 1.5, MinIncrement: 2}

// ParseStrategy maps a strategy name to its default parameters.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "linear":
		return Linear{Increment: 16}, nil
	case "doubling":
		return Doubling{MinIncrement: 2}, nil
	case "factor", "":
		return DefaultStrategy, nil
	}
	return nil, fmt.Errorf("unknown growth strategy %q", name)
}

// DynArray is a growable array with an explicit growth policy.
//
// Pointers returned by Allocate and At stay valid until the next growth.
// Generation changes each time the backing storage moves.
type DynArray[T any] struct {
	data     []T
	strategy Strategy
	release  func(*T)
	gen      uint32
}

// NewDynArray creates an empty array. release, when not nil, is invoked on
// every element by Release.
func NewDynArray[T any](strategy Strategy, release func(*T)) *DynArray[T] {
	a := &DynArray[T]{}
	a.Init(strategy, release)
	return a
}

// Init configures a zero DynArray, so that arrays can be stored by value.
func (a *DynArray[T]) Init(strategy Strategy, release func(*T)) {
	if strategy == nil {
		strategy = DefaultStrategy
	}
	a.strategy = strategy
	a.release = release
}

func (a *DynArray[T]) Len() int { return len(a.data) }

func (a *DynArray[T]) Cap() int { return cap(a.data) }

func (a *DynArray[T]) Generation() uint32 { return a.gen }

// Data exposes the used portion of the array.
func (a *DynArray[T]) Data() []T { return a.data }

func (a *DynArray[T]) At(i int) *T { return &a.data[i] }

// Reserve makes room for at least n elements.
func (a *DynArray[T]) Reserve(n int) error {
	if n <= cap(a.data) {
		return nil
	}
	return a.resize(n)
}

// Allocate appends a zeroed element and returns its address.
func (a *DynArray[T]) Allocate() (*T, error) {
	if len(a.data) == cap(a.data) {
		if err := a.resize(a.strategy.Next(cap(a.data))); err != nil {
			return nil, err
		}
	}

	var zero T
	a.data = append(a.data, zero)
	return &a.data[len(a.data)-1], nil
}

func (a *DynArray[T]) resize(capacity int) error {
	if capacity > MaxCapacity {
		if cap(a.data) >= MaxCapacity {
			return fmt.Errorf("%w: cannot grow beyond %d elements", ErrResourceExhausted, MaxCapacity)
		}
		capacity = MaxCapacity
	}

	data := make([]T, len(a.data), capacity)
	copy(data, a.data)
	a.data = data
	a.gen++
	return nil
}

// Shrink trims the capacity to the number of used elements.
func (a *DynArray[T]) Shrink() {
	if len(a.data) == cap(a.data) {
		return
	}
	data := make([]T, len(a.data))
	copy(data, a.data)
	a.data = data
	a.gen++
}

// Sort sorts the array in place, keeping the relative order of equal elements.
func (a *DynArray[T]) Sort(cmp func(x, y T) int) {
	Sort(a.data, cmp)
}

// Truncate drops every element from index n onwards.
func (a *DynArray[T]) Truncate(n int) {
	a.data = a.data[:n]
}

// Release calls the release hook on each element and drops the storage.
func (a *DynArray[T]) Release() {
	if a.release != nil {
		for i := range a.data {
			a.release(&a.data[i])
		}
	}
	a.data = nil
	a.gen++
}

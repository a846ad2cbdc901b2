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
package trie

import (
	"io"
	"log/slog"

	"github.com/ostafen/lmtrie/internal/mgram"
	"github.com/ostafen/lmtrie/internal/wordindex"
)

// Backend stores the m-gram payloads of a model. Grams are added level by
// level, and each level is sealed by PostGrams before the next one is
// filled. Lookups are valid once every level is sealed.
type Backend interface {
	Layout() Layout

	// PreAllocate reserves storage for counts[i] grams of level i+1.
	PreAllocate(counts []int, idx wordindex.Index) error

	Add1Gram(g *mgram.ModelGram) error
	AddMGram(g *mgram.ModelGram) error
	AddNGram(g *mgram.ModelGram) error

	NeedsPostGrams(level int) bool
	PostGrams(level int) error

	Get1GramPayload(id wordindex.WordID) (mgram.Payload, bool)
	GetMGramPayload(q *mgram.Query, begin, end int) (mgram.Payload, bool)
	GetNGramProb(q *mgram.Query, begin, end int) (float32, bool)

	NeedsBitmapCache() bool

	// MemoryUsage estimates the bytes held by the backend.
	MemoryUsage() int64

	Close() error
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func reportCollision(logger *slog.Logger, level int, gram any, prev, next any) {
	logger.Warn("m-gram collision, keeping the most recent value",
		"level", level,
		"gram", gram,
		"old", prev,
		"new", next,
	)
}

// contextResolver maps the context id of an m-gram prefix and the next
// word to the context id of the extended gram of the given level.
type contextResolver interface {
	nextContext(level int, word wordindex.WordID, ctx uint64) (uint64, bool)
}

// modelContext computes the context id of the gram made of ids.
func modelContext(r contextResolver, ids []wordindex.WordID) (uint64, bool) {
	ctx := uint64(ids[0])
	for i := 1; i < len(ids); i++ {
		var ok bool
		if ctx, ok = r.nextContext(i+1, ids[i], ctx); !ok {
			return 0, false
		}
	}
	return ctx, true
}

// queryContext computes the context id of the sub-gram [begin, end],
// caching the result in the query.
func queryContext(r contextResolver, q *mgram.Query, begin, end int) (uint64, bool) {
	if begin == end {
		return uint64(q.WordID(begin)), true
	}
	if ctx, ok := q.ContextID(begin, end); ok {
		return ctx, true
	}

	prev, ok := queryContext(r, q, begin, end-1)
	if !ok {
		return 0, false
	}

	ctx, ok := r.nextContext(end-begin+1, q.WordID(end), prev)
	if ok {
		q.SetContextID(begin, end, ctx)
	}
	return ctx, ok
}

// dedupLast compacts a stably sorted slice so that only the last element
// of each run of equal keys survives, and returns the new length.
func dedupLast[T any](a []T, same func(x, y *T) bool, onCollision func(prev, next *T)) int {
	n := 0
	for i := range a {
		if n > 0 && same(&a[n-1], &a[i]) {
			onCollision(&a[n-1], &a[i])
			a[n-1] = a[i]
			continue
		}
		a[n] = a[i]
		n++
	}
	return n
}

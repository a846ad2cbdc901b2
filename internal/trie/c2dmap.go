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
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/ostafen/lmtrie/internal/mgram"
	"github.com/ostafen/lmtrie/internal/wordindex"
)

type ctxKey struct {
	ctx  uint64
	word wordindex.WordID
}

type c2dEntry struct {
	id      uint64
	payload mgram.Payload
}

// C2DMapTrie maps (context, word) pairs to payloads with one hash map per
// level. Context ids are handed out in insertion order, so levels need no
// sealing and any word index can be used.
type C2DMapTrie struct {
	opts   Options
	logger *slog.Logger

	maxLevel int
	uni      *unigrams
	mLevels  [mgram.MaxLevel + 1]map[ctxKey]c2dEntry
	nextID   [mgram.MaxLevel + 1]uint64
	nLevel   map[ctxKey]float32
}

func NewC2DMap(opts Options, logger *slog.Logger) *C2DMapTrie {
	return &C2DMapTrie{
		opts:   opts,
		logger: logger,
	}
}

func (t *C2DMapTrie) Layout() Layout { return C2DMap }

// NeedsBitmapCache is false: a map probe costs about as much as the filter.
func (t *C2DMapTrie) NeedsBitmapCache() bool { return false }

func (t *C2DMapTrie) PreAllocate(counts []int, idx wordindex.Index) error {
	t.maxLevel = len(counts)
	t.uni = newUnigrams(counts[0], idx, t.logger)

	for level := 2; level < t.maxLevel; level++ {
		t.mLevels[level] = make(map[ctxKey]c2dEntry, counts[level-1])
		t.nextID[level] = FirstValidContextID
	}
	t.nLevel = make(map[ctxKey]float32, counts[t.maxLevel-1])
	return nil
}

func (t *C2DMapTrie) Add1Gram(g *mgram.ModelGram) error {
	return t.uni.add(g)
}

func (t *C2DMapTrie) gramKey(g *mgram.ModelGram) (ctxKey, error) {
	ctx, ok := modelContext(t, g.IDs[:len(g.IDs)-1])
	if !ok {
		return ctxKey{}, fmt.Errorf("%w: %q", ErrContextNotFound, g)
	}
	return ctxKey{ctx: ctx, word: g.EndWordID()}, nil
}

func (t *C2DMapTrie) AddMGram(g *mgram.ModelGram) error {
	key, err := t.gramKey(g)
	if err != nil {
		return err
	}

	level := g.Level()
	m := t.mLevels[level]

	if prev, ok := m[key]; ok {
		reportCollision(t.logger, level, g.String(), prev.payload, g.Payload)
		m[key] = c2dEntry{id: prev.id, payload: g.Payload}
		return nil
	}

	m[key] = c2dEntry{id: t.nextID[level], payload: g.Payload}
	t.nextID[level]++
	return nil
}

func (t *C2DMapTrie) AddNGram(g *mgram.ModelGram) error {
	key, err := t.gramKey(g)
	if err != nil {
		return err
	}

	if prev, ok := t.nLevel[key]; ok {
		reportCollision(t.logger, t.maxLevel, g.String(), prev, g.Payload.Prob)
	}
	t.nLevel[key] = g.Payload.Prob
	return nil
}

func (t *C2DMapTrie) NeedsPostGrams(int) bool { return false }

func (t *C2DMapTrie) PostGrams(level int) error {
	if level < 1 || level > t.maxLevel {
		return fmt.Errorf("%w: %d", mgram.ErrInvalidLevel, level)
	}
	return nil
}

func (t *C2DMapTrie) nextContext(level int, word wordindex.WordID, ctx uint64) (uint64, bool) {
	m := t.mLevels[level]
	if m == nil {
		return 0, false
	}

	e, ok := m[ctxKey{ctx: ctx, word: word}]
	return e.id, ok
}

func (t *C2DMapTrie) Get1GramPayload(id wordindex.WordID) (mgram.Payload, bool) {
	return t.uni.get(id)
}

func (t *C2DMapTrie) GetMGramPayload(q *mgram.Query, begin, end int) (mgram.Payload, bool) {
	ctx, ok := queryContext(t, q, begin, end-1)
	if !ok {
		return mgram.Payload{}, false
	}

	e, ok := t.mLevels[end-begin+1][ctxKey{ctx: ctx, word: q.WordID(end)}]
	return e.payload, ok
}

func (t *C2DMapTrie) GetNGramProb(q *mgram.Query, begin, end int) (float32, bool) {
	ctx, ok := queryContext(t, q, begin, end-1)
	if !ok {
		return 0, false
	}

	prob, ok := t.nLevel[ctxKey{ctx: ctx, word: q.WordID(end)}]
	return prob, ok
}

// MemoryUsage only counts keys and values, not the map overhead.
func (t *C2DMapTrie) MemoryUsage() int64 {
	var size int64
	if t.uni != nil {
		size += t.uni.memoryUsage()
	}

	keySize := int64(unsafe.Sizeof(ctxKey{}))
	for _, m := range t.mLevels {
		size += int64(len(m)) * (keySize + int64(unsafe.Sizeof(c2dEntry{})))
	}
	size += int64(len(t.nLevel)) * (keySize + 4)
	return size
}

func (t *C2DMapTrie) Close() error {
	for i := range t.mLevels {
		t.mLevels[i] = nil
	}
	t.nLevel = nil
	return nil
}

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
	"cmp"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/ostafen/lmtrie/internal/mgram"
	"github.com/ostafen/lmtrie/internal/wordindex"
	"github.com/ostafen/lmtrie/pkg/arrays"
)

type w2cEntry[P any] struct {
	ctx     uint64
	payload P
}

// w2cLevel holds, for each end word, the contexts it follows at one level.
type w2cLevel[P any] struct {
	words []arrays.DynArray[w2cEntry[P]]

	// cio is the context id of the first entry of each word,
	// assigned when the level is sealed.
	cio []uint64
}

func newW2CLevel[P any](numWords int, strategy arrays.Strategy) *w2cLevel[P] {
	l := &w2cLevel[P]{
		words: make([]arrays.DynArray[w2cEntry[P]], numWords),
	}
	for i := range l.words {
		l.words[i].Init(strategy, nil)
	}
	return l
}

func (l *w2cLevel[P]) add(word wordindex.WordID, ctx uint64, payload P) error {
	if uint64(word) >= uint64(len(l.words)) {
		return fmt.Errorf("%w: word id %d out of range", ErrInvalidState, word)
	}

	e, err := l.words[word].Allocate()
	if err != nil {
		return err
	}
	e.ctx = ctx
	e.payload = payload
	return nil
}

func (l *w2cLevel[P]) seal(onCollision func(word int, prev, next *w2cEntry[P])) {
	l.cio = make([]uint64, len(l.words))

	next := FirstValidContextID
	for w := range l.words {
		arr := &l.words[w]

		arr.Sort(func(x, y w2cEntry[P]) int { return cmp.Compare(x.ctx, y.ctx) })
		n := dedupLast(arr.Data(),
			func(x, y *w2cEntry[P]) bool { return x.ctx == y.ctx },
			func(prev, next *w2cEntry[P]) { onCollision(w, prev, next) },
		)
		arr.Truncate(n)
		arr.Shrink()

		l.cio[w] = next
		next += uint64(n)
	}
}

func (l *w2cLevel[P]) find(word wordindex.WordID, ctx uint64, interpolate bool) (int, bool) {
	if uint64(word) >= uint64(len(l.words)) {
		return -1, false
	}

	data := l.words[word].Data()
	if len(data) == 0 {
		return -1, false
	}

	keyOf := func(e *w2cEntry[P]) uint64 { return e.ctx }
	if interpolate {
		return arrays.InterpolationSearch(data, 0, len(data)-1, ctx, keyOf)
	}
	return arrays.BinarySearch(data, 0, len(data)-1, ctx, keyOf)
}

func (l *w2cLevel[P]) get(word wordindex.WordID, ctx uint64, interpolate bool) (P, bool) {
	idx, found := l.find(word, ctx, interpolate)
	if !found {
		var zero P
		return zero, false
	}
	return l.words[word].At(idx).payload, true
}

func (l *w2cLevel[P]) memoryUsage() int64 {
	var zero w2cEntry[P]

	size := int64(len(l.words))*int64(unsafe.Sizeof(l.words[0])) + int64(len(l.cio))*8
	for i := range l.words {
		size += int64(l.words[i].Cap()) * int64(unsafe.Sizeof(zero))
	}
	return size
}

func (l *w2cLevel[P]) release() {
	for i := range l.words {
		l.words[i].Release()
	}
	l.words, l.cio = nil, nil
}

// W2CArrayTrie keeps, for every level and end word, a sorted array of the
// context ids preceding that word. The context id of an m-gram is the
// offset of its word at the level plus its position in the array.
type W2CArrayTrie struct {
	opts   Options
	logger *slog.Logger

	maxLevel int
	uni      *unigrams
	mLevels  [mgram.MaxLevel + 1]*w2cLevel[mgram.Payload]
	nLevel   *w2cLevel[float32]
}

func NewW2CArray(opts Options, logger *slog.Logger) *W2CArrayTrie {
	return &W2CArrayTrie{
		opts:   opts,
		logger: logger,
	}
}

func (t *W2CArrayTrie) Layout() Layout { return W2CArray }

func (t *W2CArrayTrie) NeedsBitmapCache() bool { return t.opts.BitmapCache }

func (t *W2CArrayTrie) PreAllocate(counts []int, idx wordindex.Index) error {
	if !idx.IsContinuous() {
		return ErrNotContinuous
	}

	t.maxLevel = len(counts)
	t.uni = newUnigrams(counts[0], idx, t.logger)

	numWords := idx.NumberOfWords(counts[0])
	for level := 2; level < t.maxLevel; level++ {
		t.mLevels[level] = newW2CLevel[mgram.Payload](numWords, t.opts.Growth)
	}
	t.nLevel = newW2CLevel[float32](numWords, t.opts.Growth)
	return nil
}

func (t *W2CArrayTrie) Add1Gram(g *mgram.ModelGram) error {
	return t.uni.add(g)
}

func (t *W2CArrayTrie) gramContext(g *mgram.ModelGram) (uint64, error) {
	ctx, ok := modelContext(t, g.IDs[:len(g.IDs)-1])
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrContextNotFound, g)
	}
	return ctx, nil
}

func (t *W2CArrayTrie) AddMGram(g *mgram.ModelGram) error {
	ctx, err := t.gramContext(g)
	if err != nil {
		return err
	}
	return t.mLevels[g.Level()].add(g.EndWordID(), ctx, g.Payload)
}

func (t *W2CArrayTrie) AddNGram(g *mgram.ModelGram) error {
	ctx, err := t.gramContext(g)
	if err != nil {
		return err
	}
	return t.nLevel.add(g.EndWordID(), ctx, g.Payload.Prob)
}

func (t *W2CArrayTrie) NeedsPostGrams(level int) bool { return level > 1 }

func (t *W2CArrayTrie) PostGrams(level int) error {
	switch {
	case level == 1:
		return nil
	case level == t.maxLevel:
		t.nLevel.seal(func(word int, prev, next *w2cEntry[float32]) {
			reportCollision(t.logger, level, w2cKey(word, prev.ctx), prev.payload, next.payload)
		})
	case level > 1 && level < t.maxLevel:
		t.mLevels[level].seal(func(word int, prev, next *w2cEntry[mgram.Payload]) {
			reportCollision(t.logger, level, w2cKey(word, prev.ctx), prev.payload, next.payload)
		})
	default:
		return fmt.Errorf("%w: %d", mgram.ErrInvalidLevel, level)
	}
	return nil
}

func w2cKey(word int, ctx uint64) string {
	return fmt.Sprintf("ctx=%d word=%d", ctx, word)
}

func (t *W2CArrayTrie) nextContext(level int, word wordindex.WordID, ctx uint64) (uint64, bool) {
	l := t.mLevels[level]
	if l == nil || l.cio == nil {
		return 0, false
	}

	idx, found := l.find(word, ctx, t.opts.UseInterpolationSearch)
	if !found {
		return 0, false
	}
	return l.cio[word] + uint64(idx), true
}

func (t *W2CArrayTrie) Get1GramPayload(id wordindex.WordID) (mgram.Payload, bool) {
	return t.uni.get(id)
}

func (t *W2CArrayTrie) GetMGramPayload(q *mgram.Query, begin, end int) (mgram.Payload, bool) {
	ctx, ok := queryContext(t, q, begin, end-1)
	if !ok {
		return mgram.Payload{}, false
	}
	return t.mLevels[end-begin+1].get(q.WordID(end), ctx, t.opts.UseInterpolationSearch)
}

func (t *W2CArrayTrie) GetNGramProb(q *mgram.Query, begin, end int) (float32, bool) {
	ctx, ok := queryContext(t, q, begin, end-1)
	if !ok {
		return 0, false
	}
	return t.nLevel.get(q.WordID(end), ctx, t.opts.UseInterpolationSearch)
}

func (t *W2CArrayTrie) MemoryUsage() int64 {
	var size int64
	if t.uni != nil {
		size += t.uni.memoryUsage()
	}
	for _, l := range t.mLevels {
		if l != nil {
			size += l.memoryUsage()
		}
	}
	if t.nLevel != nil {
		size += t.nLevel.memoryUsage()
	}
	return size
}

func (t *W2CArrayTrie) Close() error {
	for _, l := range t.mLevels {
		if l != nil {
			l.release()
		}
	}
	if t.nLevel != nil {
		t.nLevel.release()
	}
	return nil
}

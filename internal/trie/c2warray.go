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

type c2wEntry[P any] struct {
	ctx     uint64
	word    wordindex.WordID
	payload P
}

func c2wKeys[P any](e *c2wEntry[P]) (uint64, wordindex.WordID) {
	return e.ctx, e.word
}

type c2wLevel[P any] struct {
	entries arrays.DynArray[c2wEntry[P]]
	sealed  bool
}

func newC2WLevel[P any](count int, strategy arrays.Strategy) (*c2wLevel[P], error) {
	l := &c2wLevel[P]{}
	l.entries.Init(strategy, nil)
	return l, l.entries.Reserve(count)
}

func (l *c2wLevel[P]) add(ctx uint64, word wordindex.WordID, payload P) error {
	e, err := l.entries.Allocate()
	if err != nil {
		return err
	}
	*e = c2wEntry[P]{ctx: ctx, word: word, payload: payload}
	return nil
}

func (l *c2wLevel[P]) seal(onCollision func(prev, next *c2wEntry[P])) {
	l.entries.Sort(func(x, y c2wEntry[P]) int {
		if c := cmp.Compare(x.ctx, y.ctx); c != 0 {
			return c
		}
		return cmp.Compare(x.word, y.word)
	})

	n := dedupLast(l.entries.Data(),
		func(x, y *c2wEntry[P]) bool { return x.ctx == y.ctx && x.word == y.word },
		onCollision,
	)
	l.entries.Truncate(n)
	l.entries.Shrink()
	l.sealed = true
}

func (l *c2wLevel[P]) find(ctx uint64, word wordindex.WordID) (int, bool) {
	data := l.entries.Data()
	if !l.sealed || len(data) == 0 {
		return -1, false
	}
	return arrays.BinarySearch2(data, 0, len(data)-1, ctx, word, c2wKeys[P])
}

func (l *c2wLevel[P]) memoryUsage() int64 {
	var zero c2wEntry[P]
	return int64(l.entries.Cap()) * int64(unsafe.Sizeof(zero))
}

// C2WArrayTrie keeps one array per level of (context, word) pairs sorted
// by context and then by word. The context id of an m-gram is its position
// in the array of its level.
type C2WArrayTrie struct {
	opts   Options
	logger *slog.Logger

	maxLevel int
	uni      *unigrams
	mLevels  [mgram.MaxLevel + 1]*c2wLevel[mgram.Payload]
	nLevel   *c2wLevel[float32]
}

func NewC2WArray(opts Options, logger *slog.Logger) *C2WArrayTrie {
	return &C2WArrayTrie{
		opts:   opts,
		logger: logger,
	}
}

func (t *C2WArrayTrie) Layout() Layout { return C2WArray }

func (t *C2WArrayTrie) NeedsBitmapCache() bool { return t.opts.BitmapCache }

func (t *C2WArrayTrie) PreAllocate(counts []int, idx wordindex.Index) error {
	if !idx.IsContinuous() {
		return ErrNotContinuous
	}

	t.maxLevel = len(counts)
	t.uni = newUnigrams(counts[0], idx, t.logger)

	var err error
	for level := 2; level < t.maxLevel; level++ {
		if t.mLevels[level], err = newC2WLevel[mgram.Payload](counts[level-1], t.opts.Growth); err != nil {
			return err
		}
	}
	t.nLevel, err = newC2WLevel[float32](counts[t.maxLevel-1], t.opts.Growth)
	return err
}

func (t *C2WArrayTrie) Add1Gram(g *mgram.ModelGram) error {
	return t.uni.add(g)
}

func (t *C2WArrayTrie) gramContext(g *mgram.ModelGram) (uint64, error) {
	ctx, ok := modelContext(t, g.IDs[:len(g.IDs)-1])
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrContextNotFound, g)
	}
	return ctx, nil
}

func (t *C2WArrayTrie) AddMGram(g *mgram.ModelGram) error {
	ctx, err := t.gramContext(g)
	if err != nil {
		return err
	}
	return t.mLevels[g.Level()].add(ctx, g.EndWordID(), g.Payload)
}

func (t *C2WArrayTrie) AddNGram(g *mgram.ModelGram) error {
	ctx, err := t.gramContext(g)
	if err != nil {
		return err
	}
	return t.nLevel.add(ctx, g.EndWordID(), g.Payload.Prob)
}

func (t *C2WArrayTrie) NeedsPostGrams(level int) bool { return level > 1 }

func (t *C2WArrayTrie) PostGrams(level int) error {
	switch {
	case level == 1:
		return nil
	case level == t.maxLevel:
		t.nLevel.seal(func(prev, next *c2wEntry[float32]) {
			reportCollision(t.logger, level, c2wKey(prev.ctx, prev.word), prev.payload, next.payload)
		})
	case level > 1 && level < t.maxLevel:
		t.mLevels[level].seal(func(prev, next *c2wEntry[mgram.Payload]) {
			reportCollision(t.logger, level, c2wKey(prev.ctx, prev.word), prev.payload, next.payload)
		})
	default:
		return fmt.Errorf("%w: %d", mgram.ErrInvalidLevel, level)
	}
	return nil
}

func c2wKey(ctx uint64, word wordindex.WordID) string {
	return fmt.Sprintf("ctx=%d word=%d", ctx, word)
}

func (t *C2WArrayTrie) nextContext(level int, word wordindex.WordID, ctx uint64) (uint64, bool) {
	l := t.mLevels[level]
	if l == nil {
		return 0, false
	}

	idx, found := l.find(ctx, word)
	if !found {
		return 0, false
	}
	return uint64(idx) + FirstValidContextID, true
}

func (t *C2WArrayTrie) Get1GramPayload(id wordindex.WordID) (mgram.Payload, bool) {
	return t.uni.get(id)
}

func (t *C2WArrayTrie) GetMGramPayload(q *mgram.Query, begin, end int) (mgram.Payload, bool) {
	ctx, ok := queryContext(t, q, begin, end-1)
	if !ok {
		return mgram.Payload{}, false
	}

	l := t.mLevels[end-begin+1]
	idx, found := l.find(ctx, q.WordID(end))
	if !found {
		return mgram.Payload{}, false
	}
	return l.entries.At(idx).payload, true
}

func (t *C2WArrayTrie) GetNGramProb(q *mgram.Query, begin, end int) (float32, bool) {
	ctx, ok := queryContext(t, q, begin, end-1)
	if !ok {
		return 0, false
	}

	idx, found := t.nLevel.find(ctx, q.WordID(end))
	if !found {
		return 0, false
	}
	return t.nLevel.entries.At(idx).payload, true
}

func (t *C2WArrayTrie) MemoryUsage() int64 {
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

func (t *C2WArrayTrie) Close() error {
	for _, l := range t.mLevels {
		if l != nil {
			l.entries.Release()
		}
	}
	if t.nLevel != nil {
		t.nLevel.entries.Release()
	}
	return nil
}

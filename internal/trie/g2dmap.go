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
	"math"
	"unsafe"

	"github.com/ostafen/lmtrie/internal/mgram"
	"github.com/ostafen/lmtrie/internal/wordindex"
	"github.com/ostafen/lmtrie/pkg/arrays"
)

// g2dEntry refers to its packed m-gram id through an offset into the
// arena of its level.
type g2dEntry[P any] struct {
	id      uint32
	payload P
}

type g2dLevel[P any] struct {
	level int
	codec mgram.IDCodec

	arena      []byte
	freedBytes int64

	buckets []arrays.DynArray[g2dEntry[P]]
}

func newG2DLevel[P any](
	level int,
	count int,
	codec mgram.IDCodec,
	wordsPerBucket int,
	strategy arrays.Strategy,
) *g2dLevel[P] {
	numBuckets := max(count/wordsPerBucket, wordsPerBucket)

	l := &g2dLevel[P]{
		level:   level,
		codec:   codec,
		arena:   make([]byte, 0, count*codec.Len(level)),
		buckets: make([]arrays.DynArray[g2dEntry[P]], numBuckets),
	}

	idLen := int64(codec.Len(level))
	for i := range l.buckets {
		l.buckets[i].Init(strategy, func(e *g2dEntry[P]) {
			l.freedBytes += idLen
			e.id = 0
		})
	}
	return l
}

func (l *g2dLevel[P]) bucket(hash uint64) *arrays.DynArray[g2dEntry[P]] {
	return &l.buckets[hash%uint64(len(l.buckets))]
}

func (l *g2dLevel[P]) idOf(e *g2dEntry[P]) []byte {
	return l.arena[e.id : int(e.id)+l.codec.Len(l.level)]
}

func (l *g2dLevel[P]) add(hash uint64, ids []wordindex.WordID, payload P) error {
	off := len(l.arena)
	if off+l.codec.Len(l.level) > math.MaxUint32 {
		return fmt.Errorf("%w: level %d id arena is full", arrays.ErrResourceExhausted, l.level)
	}

	e, err := l.bucket(hash).Allocate()
	if err != nil {
		return err
	}

	l.arena = l.codec.Append(l.arena, ids)
	e.id = uint32(off)
	e.payload = payload
	return nil
}

func (l *g2dLevel[P]) seal(onCollision func(prev, next *g2dEntry[P])) {
	for i := range l.buckets {
		b := &l.buckets[i]

		b.Sort(func(x, y g2dEntry[P]) int {
			return l.codec.Compare(l.level, l.idOf(&x), l.idOf(&y))
		})

		n := dedupLast(b.Data(),
			func(x, y *g2dEntry[P]) bool {
				return l.codec.Compare(l.level, l.idOf(x), l.idOf(y)) == 0
			},
			func(prev, next *g2dEntry[P]) {
				l.freedBytes += int64(l.codec.Len(l.level))
				onCollision(prev, next)
			},
		)
		b.Truncate(n)
		b.Shrink()
	}
}

func (l *g2dLevel[P]) get(hash uint64, ids []wordindex.WordID) (P, bool) {
	var zero P

	data := l.bucket(hash).Data()
	if len(data) == 0 {
		return zero, false
	}

	var buf [mgram.MaxLevel * 8]byte
	key := l.codec.Append(buf[:0], ids)

	idx, found := arrays.SearchFunc(data, 0, len(data)-1, func(e *g2dEntry[P]) int {
		return l.codec.Compare(l.level, l.idOf(e), key)
	})
	if !found {
		return zero, false
	}
	return data[idx].payload, true
}

func (l *g2dLevel[P]) memoryUsage() int64 {
	var zero g2dEntry[P]

	size := int64(cap(l.arena)) + int64(len(l.buckets))*int64(unsafe.Sizeof(l.buckets[0]))
	for i := range l.buckets {
		size += int64(l.buckets[i].Cap()) * int64(unsafe.Sizeof(zero))
	}
	return size
}

func (l *g2dLevel[P]) release() {
	for i := range l.buckets {
		l.buckets[i].Release()
	}
	l.buckets = nil
	l.arena = nil
}

// G2DMapTrie stores every m-gram under its packed id, in hash buckets that
// are sorted by id once the level is complete. It does not need context
// ids, so it works with any word index.
type G2DMapTrie struct {
	opts   Options
	logger *slog.Logger

	maxLevel int
	codec    mgram.IDCodec
	uni      *unigrams
	mLevels  [mgram.MaxLevel + 1]*g2dLevel[mgram.Payload]
	nLevel   *g2dLevel[float32]
}

func NewG2DMap(opts Options, logger *slog.Logger) *G2DMapTrie {
	if opts.WordsPerBucket <= 0 {
		opts.WordsPerBucket = DefaultWordsPerBucket
	}
	return &G2DMapTrie{
		opts:   opts,
		logger: logger,
	}
}

func (t *G2DMapTrie) Layout() Layout { return G2DMap }

func (t *G2DMapTrie) NeedsBitmapCache() bool { return t.opts.BitmapCache }

func (t *G2DMapTrie) PreAllocate(counts []int, idx wordindex.Index) error {
	t.maxLevel = len(counts)
	t.uni = newUnigrams(counts[0], idx, t.logger)
	t.codec = mgram.NewIDCodec(idx.MaxWordID())

	for level := 2; level < t.maxLevel; level++ {
		t.mLevels[level] = newG2DLevel[mgram.Payload](level, counts[level-1], t.codec, t.opts.WordsPerBucket, t.opts.Growth)
	}
	t.nLevel = newG2DLevel[float32](t.maxLevel, counts[t.maxLevel-1], t.codec, t.opts.WordsPerBucket, t.opts.Growth)
	return nil
}

func (t *G2DMapTrie) Add1Gram(g *mgram.ModelGram) error {
	return t.uni.add(g)
}

func (t *G2DMapTrie) AddMGram(g *mgram.ModelGram) error {
	return t.mLevels[g.Level()].add(g.Hash(), g.IDs, g.Payload)
}

func (t *G2DMapTrie) AddNGram(g *mgram.ModelGram) error {
	return t.nLevel.add(g.Hash(), g.IDs, g.Payload.Prob)
}

func (t *G2DMapTrie) NeedsPostGrams(level int) bool { return level > 1 }

func (t *G2DMapTrie) PostGrams(level int) error {
	switch {
	case level == 1:
		return nil
	case level == t.maxLevel:
		l := t.nLevel
		l.seal(func(prev, next *g2dEntry[float32]) {
			reportCollision(t.logger, level, l.codec.Decode(l.idOf(prev), level), prev.payload, next.payload)
		})
	case level > 1 && level < t.maxLevel:
		l := t.mLevels[level]
		l.seal(func(prev, next *g2dEntry[mgram.Payload]) {
			reportCollision(t.logger, level, l.codec.Decode(l.idOf(prev), level), prev.payload, next.payload)
		})
	default:
		return fmt.Errorf("%w: %d", mgram.ErrInvalidLevel, level)
	}
	return nil
}

func (t *G2DMapTrie) Get1GramPayload(id wordindex.WordID) (mgram.Payload, bool) {
	return t.uni.get(id)
}

func (t *G2DMapTrie) GetMGramPayload(q *mgram.Query, begin, end int) (mgram.Payload, bool) {
	return t.mLevels[end-begin+1].get(q.Hash(begin, end), q.WordIDs(begin, end))
}

func (t *G2DMapTrie) GetNGramProb(q *mgram.Query, begin, end int) (float32, bool) {
	return t.nLevel.get(q.Hash(begin, end), q.WordIDs(begin, end))
}

func (t *G2DMapTrie) MemoryUsage() int64 {
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

// FreedBytes returns the arena bytes of ids dropped by collisions or released by Close.
func (t *G2DMapTrie) FreedBytes() int64 {
	var n int64
	for _, l := range t.mLevels {
		if l != nil {
			n += l.freedBytes
		}
	}
	if t.nLevel != nil {
		n += t.nLevel.freedBytes
	}
	return n
}

func (t *G2DMapTrie) Close() error {
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

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
	"slices"

	"github.com/ostafen/lmtrie/internal/cache"
	"github.com/ostafen/lmtrie/internal/mgram"
	"github.com/ostafen/lmtrie/internal/wordindex"
)

type State int

const (
	StateCreated State = iota
	StateInserting
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInserting:
		return "inserting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status describes how the probability of a query prefix was obtained.
type Status int

const (
	GoodPresent Status = iota
	BadNoPayload
	BadEndWordUnknown
)

func (s Status) String() string {
	switch s {
	case GoodPresent:
		return "GOOD_PRESENT"
	case BadNoPayload:
		return "BAD_NO_PAYLOAD"
	case BadEndWordUnknown:
		return "BAD_END_WORD_UNKNOWN"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

type probFunc func(q *mgram.Query, begin, end int, prob *float32) Status

type backOffFunc func(q *mgram.Query, begin, end int, prob *float32)

// Driver puts the bitmap hash caches in front of a backend and enforces the
// construction protocol. Once every level is sealed it is safe for
// concurrent use, as long as each goroutine owns its queries.
type Driver struct {
	backend Backend
	index   wordindex.Index
	opts    Options
	logger  *slog.Logger

	state    State
	level    int
	maxLevel int
	counts   []int
	added    [mgram.MaxLevel + 1]int
	skipped  int

	caches    [mgram.MaxLevel + 1]*cache.BitmapHashCache
	probFuncs [mgram.MaxLevel + 1]probFunc
	backFuncs [mgram.MaxLevel + 1]backOffFunc

	unk      mgram.Payload
	unkFound bool
}

// New creates a driver over a new backend of the configured layout.
func New(idx wordindex.Index, opts Options, logger *slog.Logger) (*Driver, error) {
	backend, err := NewBackend(opts, logger)
	if err != nil {
		return nil, err
	}
	return NewDriver(backend, idx, opts, logger)
}

func NewDriver(backend Backend, idx wordindex.Index, opts Options, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = discardLogger()
	}

	if backend.Layout().RequiresContinuousIndex() && !idx.IsContinuous() {
		return nil, fmt.Errorf("%w: layout %s", ErrNotContinuous, backend.Layout())
	}

	return &Driver{
		backend: backend,
		index:   idx,
		opts:    opts,
		logger:  logger,
		state:   StateCreated,
	}, nil
}

func (d *Driver) Layout() Layout { return d.backend.Layout() }

func (d *Driver) Index() wordindex.Index { return d.index }

func (d *Driver) MaxLevel() int { return d.maxLevel }

func (d *Driver) State() State { return d.state }

// PreAllocate sizes the trie for counts[i] grams of level i+1.
// The number of counts is the model level.
func (d *Driver) PreAllocate(counts []int) error {
	if d.state != StateCreated {
		return fmt.Errorf("%w: pre-allocation in state %s", ErrInvalidState, d.state)
	}
	if err := mgram.CheckLevel(len(counts)); err != nil {
		return err
	}

	if err := d.backend.PreAllocate(counts, d.index); err != nil {
		return fmt.Errorf("failed to pre-allocate %s trie: %w", d.backend.Layout(), err)
	}

	d.maxLevel = len(counts)
	d.counts = slices.Clone(counts)

	if d.opts.BitmapCache && d.backend.NeedsBitmapCache() {
		for level := 2; level <= d.maxLevel; level++ {
			c, err := cache.New(counts[level-1], d.opts.CacheFalsePositiveRate)
			if err != nil {
				return err
			}
			d.caches[level] = c
		}
	}

	d.unk = mgram.Payload{
		Prob: d.opts.UnkWordLogProbWeight,
		Back: d.opts.ZeroBackOffWeight,
	}
	d.buildDispatch()

	d.state = StateInserting
	d.level = 1
	return nil
}

// AddGram stores a gram of the level currently open for insertion.
func (d *Driver) AddGram(g *mgram.ModelGram) error {
	if d.state != StateInserting {
		return fmt.Errorf("%w: insertion in state %s", ErrInvalidState, d.state)
	}

	level := g.Level()
	if level != d.level {
		return fmt.Errorf("%w: got a %d-gram while level %d is open", ErrInvalidState, level, d.level)
	}

	g.ResolveIDs(d.index)

	if level == 1 {
		return d.add1Gram(g)
	}

	if g.HasUnknownWords() {
		if !slices.Contains(g.Tokens, wordindex.UnknownWord) {
			return fmt.Errorf("%w: %q contains words missing from the unigrams", ErrUnknownWord, g)
		}

		d.skipped++
		d.logger.Warn("skipping m-gram containing the unknown word", "level", level, "gram", g.String())
		return nil
	}

	if c := d.caches[level]; c != nil {
		c.Add(g.Hash())
	}

	var err error
	if level == d.maxLevel {
		err = d.backend.AddNGram(g)
	} else {
		err = d.backend.AddMGram(g)
	}
	if err != nil {
		return err
	}

	d.added[level]++
	return nil
}

func (d *Driver) add1Gram(g *mgram.ModelGram) error {
	if g.EndWordID() == wordindex.UnknownWordID {
		if d.unkFound {
			reportCollision(d.logger, 1, g.String(), d.unk, g.Payload)
		}
		d.unk = g.Payload
		d.unkFound = true
		d.added[1]++
		return nil
	}

	if err := d.backend.Add1Gram(g); err != nil {
		return err
	}
	d.added[1]++
	return nil
}

// PostGrams seals the open level and opens the next one.
func (d *Driver) PostGrams(level int) error {
	if d.state != StateInserting || level != d.level {
		return fmt.Errorf("%w: cannot seal level %d in state %s", ErrInvalidState, level, d.state)
	}

	if d.backend.NeedsPostGrams(level) {
		if err := d.backend.PostGrams(level); err != nil {
			return fmt.Errorf("failed to seal level %d: %w", level, err)
		}
	}
	d.logger.Debug("level sealed", "level", level, "grams", d.added[level])

	if level == d.maxLevel {
		d.state = StateReady
		return nil
	}
	d.level++
	return nil
}

// ZeroBackOffWeight is the back-off stored for grams listed without one.
func (d *Driver) ZeroBackOffWeight() float32 { return d.opts.ZeroBackOffWeight }

// UnkPayload returns the payload used for words missing from the model.
func (d *Driver) UnkPayload() mgram.Payload { return d.unk }

func (d *Driver) cached(level int, q *mgram.Query, begin, end int) bool {
	c := d.caches[level]
	return c == nil || c.MayContain(q.Hash(begin, end))
}

func (d *Driver) buildDispatch() {
	d.probFuncs = [mgram.MaxLevel + 1]probFunc{}
	d.backFuncs = [mgram.MaxLevel + 1]backOffFunc{}

	d.probFuncs[1] = func(q *mgram.Query, _, end int, prob *float32) Status {
		if q.IsUnknown(end) {
			*prob = d.unk.Prob
			return BadEndWordUnknown
		}

		p, ok := d.backend.Get1GramPayload(q.WordID(end))
		if !ok {
			*prob = d.unk.Prob
			return BadNoPayload
		}
		*prob = p.Prob
		return GoodPresent
	}

	// Words missing from the unigrams back off through <unk>.
	d.backFuncs[1] = func(q *mgram.Query, _, end int, prob *float32) {
		if !q.IsUnknown(end) {
			if p, ok := d.backend.Get1GramPayload(q.WordID(end)); ok {
				*prob += p.Back
				return
			}
		}
		*prob += d.unk.Back
	}

	for level := 2; level < d.maxLevel; level++ {
		d.probFuncs[level] = func(q *mgram.Query, begin, end int, prob *float32) Status {
			if st, skip := d.shortCircuit(level, q, begin, end); skip {
				return st
			}

			p, ok := d.mgramPayload(q, begin, end)
			if !ok {
				return BadNoPayload
			}
			*prob = p.Prob
			return GoodPresent
		}

		d.backFuncs[level] = func(q *mgram.Query, begin, end int, prob *float32) {
			if _, skip := d.shortCircuit(level, q, begin, end); skip {
				return
			}
			if p, ok := d.mgramPayload(q, begin, end); ok {
				*prob += p.Back
			}
		}
	}

	d.probFuncs[d.maxLevel] = func(q *mgram.Query, begin, end int, prob *float32) Status {
		if st, skip := d.shortCircuit(d.maxLevel, q, begin, end); skip {
			return st
		}

		p, ok := d.backend.GetNGramProb(q, begin, end)
		if !ok {
			return BadNoPayload
		}
		*prob = p
		return GoodPresent
	}
}

// mgramPayload looks up the sub-gram [begin, end] once per query, since
// the same prefix is probed both for its probability and as a back-off
// context.
func (d *Driver) mgramPayload(q *mgram.Query, begin, end int) (mgram.Payload, bool) {
	if p, found, probed := q.Payload(begin, end); probed {
		return p, found
	}
	p, found := d.backend.GetMGramPayload(q, begin, end)
	q.SetPayload(begin, end, p, found)
	return p, found
}

// shortCircuit reports whether the sub-gram cannot be in the model,
// either because it has unknown words or because the cache rules it out.
func (d *Driver) shortCircuit(level int, q *mgram.Query, begin, end int) (Status, bool) {
	if q.IsUnknown(end) {
		return BadEndWordUnknown, true
	}
	if q.HasUnknown(begin, end) || !d.cached(level, q, begin, end) {
		return BadNoPayload, true
	}
	return GoodPresent, false
}

func (d *Driver) checkLevel(level int) {
	if level < 1 || level > d.maxLevel {
		panic(fmt.Sprintf("trie: level %d is not within [1, %d]", level, d.maxLevel))
	}
}

// GetProbWeight sets prob to the probability of the sub-gram [begin, end]
// when the model has it, and leaves it unchanged otherwise.
func (d *Driver) GetProbWeight(q *mgram.Query, begin, end int, prob *float32) Status {
	level := end - begin + 1
	d.checkLevel(level)
	return d.probFuncs[level](q, begin, end, prob)
}

// AddBackOffWeight adds the back-off weight of the sub-gram [begin, end]
// to prob, or nothing when the sub-gram is absent.
func (d *Driver) AddBackOffWeight(q *mgram.Query, begin, end int, prob *float32) {
	level := end - begin + 1
	d.checkLevel(level)
	if f := d.backFuncs[level]; f != nil {
		f(q, begin, end, prob)
	}
}

type Stats struct {
	Layout      Layout
	MaxLevel    int
	Declared    []int
	Added       []int
	Skipped     int
	MemoryBytes int64
	Caches      []cache.Stats
}

func (d *Driver) Stats() Stats {
	st := Stats{
		Layout:      d.backend.Layout(),
		MaxLevel:    d.maxLevel,
		Declared:    slices.Clone(d.counts),
		Added:       slices.Clone(d.added[1 : d.maxLevel+1]),
		Skipped:     d.skipped,
		MemoryBytes: d.backend.MemoryUsage(),
	}

	for _, c := range d.caches {
		if c != nil {
			cs := c.Stats()
			st.Caches = append(st.Caches, cs)
			st.MemoryBytes += cs.Bytes
		}
	}
	return st
}

func (d *Driver) Close() error {
	if d.state == StateClosed {
		return nil
	}
	d.state = StateClosed
	d.caches = [mgram.MaxLevel + 1]*cache.BitmapHashCache{}
	return d.backend.Close()
}

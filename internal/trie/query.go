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
	"strings"

	"github.com/ostafen/lmtrie/internal/mgram"
)

// PrefixProb is the conditional log10 probability of a query word given
// the words preceding it.
type PrefixProb struct {
	Status  Status
	LogProb float32
}

type Result struct {
	Tokens   []string
	Prefixes []PrefixProb

	// Total sums the prefix probabilities above the zero threshold.
	Total float32
}

// Last returns the probability of the last word given the whole query,
// or a zero PrefixProb for an empty result.
func (r Result) Last() PrefixProb {
	if len(r.Prefixes) == 0 {
		return PrefixProb{}
	}
	return r.Prefixes[len(r.Prefixes)-1]
}

func (r Result) String() string {
	var sb strings.Builder
	for i, p := range r.Prefixes {
		fmt.Fprintf(&sb, "log_10( Prob( %s", r.Tokens[i])
		if i > 0 {
			fmt.Fprintf(&sb, " | %s", strings.Join(r.Tokens[:i], " "))
		}
		fmt.Fprintf(&sb, " ) ) = %g\n", p.LogProb)
	}
	fmt.Fprintf(&sb, "log_10( Prob( %s ) ) = %g", strings.Join(r.Tokens, " "), r.Total)
	return sb.String()
}

// Query computes the cumulative probability of word sequences. Its scratch
// state is reused across calls, so it must not be shared by goroutines.
type Query struct {
	driver   *Driver
	gram     mgram.Query
	prefixes [mgram.MaxLevel]PrefixProb
	total    float32
}

func (d *Driver) NewQuery() *Query {
	return &Query{driver: d}
}

// Execute scores every prefix of tokens applying back-off where the
// model has no entry for it.
func (q *Query) Execute(tokens []string) error {
	d := q.driver
	if d.state != StateReady {
		return fmt.Errorf("%w: query in state %s", ErrInvalidState, d.state)
	}
	if len(tokens) > d.maxLevel {
		return fmt.Errorf("%w: %d words, model level is %d", ErrQueryTooLong, len(tokens), d.maxLevel)
	}
	if err := q.gram.Set(tokens, d.index); err != nil {
		return err
	}

	q.total = 0
	for end := range tokens {
		prob, st := q.conditionalProb(0, end)

		q.prefixes[end] = PrefixProb{Status: st, LogProb: prob}
		if prob > d.opts.ZeroLogProbWeight {
			q.total += prob
		}
	}
	return nil
}

func (q *Query) conditionalProb(begin, end int) (float32, Status) {
	d := q.driver

	var prob float32
	st := d.GetProbWeight(&q.gram, begin, end, &prob)
	if st == GoodPresent || begin == end {
		return prob, st
	}

	if st == BadEndWordUnknown {
		return d.unk.Prob, st
	}

	var back float32
	d.AddBackOffWeight(&q.gram, begin, end-1, &back)

	lower, _ := q.conditionalProb(begin+1, end)
	return back + lower, st
}

func (q *Query) Result() Result {
	n := q.gram.Len()
	return Result{
		Tokens:   append([]string(nil), q.gram.Tokens...),
		Prefixes: append([]PrefixProb(nil), q.prefixes[:n]...),
		Total:    q.total,
	}
}

// Total returns the cumulative probability of the last executed query.
func (q *Query) Total() float32 { return q.total }

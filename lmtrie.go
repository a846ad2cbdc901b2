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

// Package lmtrie stores N-gram back-off language models in memory and
// scores word sequences against them.
package lmtrie

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ostafen/lmtrie/internal/arpa"
	"github.com/ostafen/lmtrie/internal/mmap"
	"github.com/ostafen/lmtrie/internal/trie"
	"github.com/ostafen/lmtrie/internal/wordindex"
)

type (
	Query      = trie.Query
	Result     = trie.Result
	PrefixProb = trie.PrefixProb
	Status     = trie.Status
	Layout     = trie.Layout
)

const (
	GoodPresent       = trie.GoodPresent
	BadNoPayload      = trie.BadNoPayload
	BadEndWordUnknown = trie.BadEndWordUnknown
)

var ErrEmptyQuery = errors.New("empty query")

type Options struct {
	trie.Options

	// HashingIndex derives word ids from a hash of the word instead of
	// assigning them sequentially. Array layouts do not support it.
	HashingIndex bool

	Logger *slog.Logger

	// Progress receives the number of model bytes consumed so far.
	Progress arpa.ProgressFunc
}

func DefaultOptions() Options {
	return Options{Options: trie.DefaultOptions()}
}

type Stats struct {
	trie.Stats

	Source       string
	SourceBytes  int64
	LoadDuration time.Duration
}

// Model is a loaded language model. It is safe for concurrent queries.
type Model struct {
	driver *trie.Driver
	logger *slog.Logger
	pool   sync.Pool

	source       string
	sourceBytes  int64
	loadDuration time.Duration
}

// Open memory maps the ARPA file at path and loads it.
func Open(path string, opts Options) (*Model, error) {
	mf, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer mf.Close()

	m, err := Load(bytes.NewReader(mf.Data), opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	m.source = path
	return m, nil
}

// Load reads an ARPA model from r.
func Load(r io.Reader, opts Options) (*Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var idx wordindex.Index = wordindex.NewBasic()
	if opts.HashingIndex {
		idx = wordindex.NewHashing()
	}

	d, err := trie.New(idx, opts.Options, logger)
	if err != nil {
		return nil, err
	}

	cr := &countingReader{r: r}
	start := time.Now()

	logger.Debug("loading model", "layout", opts.Layout, "hashing_index", opts.HashingIndex)
	if err := arpa.Load(cr, d, opts.Progress); err != nil {
		d.Close()
		return nil, err
	}

	m := &Model{
		driver:       d,
		logger:       logger,
		source:       "<reader>",
		sourceBytes:  cr.n,
		loadDuration: time.Since(start),
	}
	m.pool.New = func() any { return d.NewQuery() }

	logger.Info("model loaded", "level", d.MaxLevel(), "duration", m.loadDuration)
	return m, nil
}

// NewQuery returns a query bound to the model. Each goroutine needs its own.
func (m *Model) NewQuery() *Query {
	return m.driver.NewQuery()
}

func (m *Model) MaxLevel() int { return m.driver.MaxLevel() }

// Score computes the cumulative probability of the whitespace separated
// words of text.
func (m *Model) Score(text string) (Result, error) {
	return m.ScoreTokens(strings.Fields(text))
}

func (m *Model) ScoreTokens(tokens []string) (Result, error) {
	if len(tokens) == 0 {
		return Result{}, ErrEmptyQuery
	}

	q := m.pool.Get().(*Query)
	defer m.pool.Put(q)

	if err := q.Execute(tokens); err != nil {
		return Result{}, err
	}
	return q.Result(), nil
}

func (m *Model) Stats() Stats {
	return Stats{
		Stats:        m.driver.Stats(),
		Source:       m.source,
		SourceBytes:  m.sourceBytes,
		LoadDuration: m.loadDuration,
	}
}

func (m *Model) Close() error {
	return m.driver.Close()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

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
	"strings"
)

// Layout selects the storage structure of a trie.
type Layout int

const (
	W2CArray Layout = iota
	C2WArray
	G2DMap
	C2DMap
)

type layoutInfo struct {
	name        string
	description string
	continuous  bool
	cached      bool
}

var layouts = [...]layoutInfo{
	W2CArray: {
		name:        "w2ca",
		description: "per word arrays of contexts, sorted by context id",
		continuous:  true,
		cached:      true,
	},
	C2WArray: {
		name:        "c2wa",
		description: "per level arrays of (context, word) pairs",
		continuous:  true,
		cached:      true,
	},
	G2DMap: {
		name:        "g2dm",
		description: "hash buckets of packed m-gram ids",
		cached:      true,
	},
	C2DMap: {
		name:        "c2dm",
		description: "per level hash maps keyed by (context, word)",
	},
}

// Layouts returns every supported layout.
func Layouts() []Layout {
	return []Layout{W2CArray, C2WArray, G2DMap, C2DMap}
}

func (l Layout) valid() bool {
	return l >= 0 && int(l) < len(layouts)
}

func (l Layout) String() string {
	if !l.valid() {
		return fmt.Sprintf("Layout(%d)", int(l))
	}
	return layouts[l].name
}

func (l Layout) Description() string {
	if !l.valid() {
		return ""
	}
	return layouts[l].description
}

// RequiresContinuousIndex reports whether word ids are used as array indexes.
func (l Layout) RequiresContinuousIndex() bool {
	return l.valid() && layouts[l].continuous
}

// UsesBitmapCache reports whether lookups are pre-filtered by a bitmap hash cache.
func (l Layout) UsesBitmapCache() bool {
	return l.valid() && layouts[l].cached
}

func ParseLayout(s string) (Layout, error) {
	for _, l := range Layouts() {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLayout, s)
}

// NewBackend creates the backend of the configured layout.
func NewBackend(opts Options, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = discardLogger()
	}

	switch opts.Layout {
	case W2CArray:
		return NewW2CArray(opts, logger), nil
	case C2WArray:
		if opts.UseInterpolationSearch {
			return nil, fmt.Errorf("%w: interpolation search for layout %s", ErrNotImplemented, opts.Layout)
		}
		return NewC2WArray(opts, logger), nil
	case G2DMap:
		return NewG2DMap(opts, logger), nil
	case C2DMap:
		return NewC2DMap(opts, logger), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownLayout, opts.Layout)
}

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
package arpa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ostafen/lmtrie/internal/mgram"
)

const (
	dataMarker = "\\data\\"
	endMarker  = "\\end\\"

	maxLineSize = 1024 * 1024
)

var ErrMalformed = errors.New("arpa: malformed model")

// Builder receives the grams of a model, level by level.
type Builder interface {
	PreAllocate(counts []int) error
	AddGram(g *mgram.ModelGram) error
	PostGrams(level int) error
}

// BackOffDefaulter is implemented by builders that store a specific weight
// for grams listed without a back-off. Otherwise zero is used.
type BackOffDefaulter interface {
	ZeroBackOffWeight() float32
}

// ProgressFunc is called with the number of bytes consumed so far.
type ProgressFunc func(read int64)

type lineReader struct {
	sc       *bufio.Scanner
	line     string
	num      int
	read     int64
	progress ProgressFunc
}

func newLineReader(r io.Reader, progress ProgressFunc) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &lineReader{sc: sc, progress: progress}
}

func (lr *lineReader) next() bool {
	if !lr.sc.Scan() {
		return false
	}

	lr.num++
	lr.read += int64(len(lr.sc.Bytes())) + 1
	if lr.progress != nil && lr.num%4096 == 0 {
		lr.progress(lr.read)
	}

	lr.line = strings.TrimSpace(lr.sc.Text())
	return true
}

// nextNonEmpty skips blank lines.
func (lr *lineReader) nextNonEmpty() bool {
	for lr.next() {
		if lr.line != "" {
			return true
		}
	}
	return false
}

func (lr *lineReader) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, lr.num, fmt.Sprintf(format, args...))
}

func (lr *lineReader) err() error {
	if err := lr.sc.Err(); err != nil {
		return err
	}
	return nil
}

// Load parses an ARPA model from r and feeds it to b.
func Load(r io.Reader, b Builder, progress ProgressFunc) error {
	lr := newLineReader(r, progress)

	counts, err := readHeader(lr)
	if err != nil {
		return err
	}

	if err := b.PreAllocate(counts); err != nil {
		return err
	}

	var zeroBack float32
	if bd, ok := b.(BackOffDefaulter); ok {
		zeroBack = bd.ZeroBackOffWeight()
	}

	for level := 1; level <= len(counts); level++ {
		if err := readSection(lr, b, level, counts[level-1], level == len(counts), zeroBack); err != nil {
			return err
		}
		if err := b.PostGrams(level); err != nil {
			return err
		}
	}

	if lr.line != endMarker {
		if err := lr.err(); err != nil {
			return err
		}
		return lr.errorf("expected %s, got %q", endMarker, lr.line)
	}

	if progress != nil {
		progress(lr.read)
	}
	return nil
}

func readHeader(lr *lineReader) ([]int, error) {
	for {
		if !lr.next() {
			if err := lr.err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: missing %s section", ErrMalformed, dataMarker)
		}
		if lr.line == dataMarker {
			break
		}
	}

	var counts []int
	for lr.nextNonEmpty() {
		if !strings.HasPrefix(lr.line, "ngram ") {
			break
		}

		level, count, err := parseCount(lr.line[len("ngram "):])
		if err != nil {
			return nil, lr.errorf("%v", err)
		}
		if level != len(counts)+1 {
			return nil, lr.errorf("unexpected count for level %d", level)
		}
		counts = append(counts, count)
	}

	if len(counts) == 0 {
		return nil, lr.errorf("no gram counts declared")
	}
	if err := mgram.CheckLevel(len(counts)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return counts, lr.err()
}

func parseCount(s string) (int, int, error) {
	levelStr, countStr, ok := strings.Cut(s, "=")
	if !ok {
		return 0, 0, fmt.Errorf("invalid count %q", s)
	}

	level, err := strconv.Atoi(strings.TrimSpace(levelStr))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid level %q", levelStr)
	}

	count, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || count < 0 {
		return 0, 0, fmt.Errorf("invalid count %q", countStr)
	}
	return level, count, nil
}

func sectionHeader(level int) string {
	return fmt.Sprintf("\\%d-grams:", level)
}

// readSection reads the grams of one level. On return the reader is
// positioned on the line following the section.
func readSection(lr *lineReader, b Builder, level, declared int, last bool, zeroBack float32) error {
	header := sectionHeader(level)
	if lr.line != header {
		return lr.errorf("expected %s, got %q", header, lr.line)
	}

	var g mgram.ModelGram

	found := 0
	for lr.nextNonEmpty() {
		if strings.HasPrefix(lr.line, "\\") {
			break
		}

		if err := parseGram(lr.line, level, last, zeroBack, &g); err != nil {
			return lr.errorf("%v", err)
		}
		if err := b.AddGram(&g); err != nil {
			return fmt.Errorf("line %d: %w", lr.num, err)
		}
		found++
	}

	if err := lr.err(); err != nil {
		return err
	}
	if found != declared {
		return fmt.Errorf("%w: declared %d %d-grams, found %d", ErrMalformed, declared, level, found)
	}
	return nil
}

// parseGram parses a line of the form "prob w1 ... wM [back]".
func parseGram(line string, level int, last bool, zeroBack float32, g *mgram.ModelGram) error {
	fields := strings.Fields(line)
	if len(fields) != level+1 && len(fields) != level+2 {
		return fmt.Errorf("expected %d words in %q", level, line)
	}

	prob, err := strconv.ParseFloat(fields[0], 32)
	if err != nil {
		return fmt.Errorf("invalid probability %q", fields[0])
	}

	back := zeroBack
	if len(fields) == level+2 {
		if last {
			return fmt.Errorf("unexpected back-off weight for a %d-gram", level)
		}
		v, err := strconv.ParseFloat(fields[level+1], 32)
		if err != nil {
			return fmt.Errorf("invalid back-off weight %q", fields[level+1])
		}
		back = float32(v)
	}

	g.Tokens = fields[1 : level+1]
	g.Payload = mgram.Payload{Prob: float32(prob), Back: back}
	return nil
}

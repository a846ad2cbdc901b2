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
package pbar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ostafen/lmtrie/pkg/util/format"
)

const MinRefreshRate = time.Millisecond * 500

const barLength = 20

// ProgressBarState holds all the data needed to render the progress bar
type ProgressBarState struct {
	Label              string
	TotalBytes         int64
	ProcessedBytes     int64
	StartTime          time.Time
	LastUpdateTime     time.Time
	LastProcessedBytes int64

	out io.Writer
}

// NewProgressBarState initializes a new ProgressBarState rendering to out
func NewProgressBarState(out io.Writer, label string, totalBytes int64) *ProgressBarState {
	return &ProgressBarState{
		Label:          label,
		TotalBytes:     totalBytes,
		StartTime:      time.Now(),
		LastUpdateTime: time.Unix(0, 0),
		out:            out,
	}
}

// Update records the number of processed bytes and redraws the bar if the
// refresh interval elapsed.
func (pbs *ProgressBarState) Update(processed int64) {
	pbs.ProcessedBytes = processed
	pbs.Render(false)
}

// Render updates and prints the progress bar line
func (pbs *ProgressBarState) Render(force bool) {
	if !force && time.Since(pbs.LastUpdateTime) < MinRefreshRate {
		return
	}

	var percentage float64
	if pbs.TotalBytes > 0 {
		percentage = min(float64(pbs.ProcessedBytes)/float64(pbs.TotalBytes)*100, 100)
	}

	filledLen := int(float64(barLength) * percentage / 100)
	var bar string
	if filledLen == barLength {
		bar = strings.Repeat("=", barLength)
	} else {
		bar = strings.Repeat("=", filledLen) + ">" + strings.Repeat(" ", barLength-filledLen-1)
	}

	var speed float64
	if elapsed := time.Since(pbs.LastUpdateTime).Seconds(); elapsed > 0 && !pbs.LastUpdateTime.Equal(time.Unix(0, 0)) {
		speed = float64(pbs.ProcessedBytes-pbs.LastProcessedBytes) / elapsed
	}

	var etaStr string
	if pbs.ProcessedBytes > 0 && speed > 0 {
		remaining := time.Duration(float64(pbs.TotalBytes-pbs.ProcessedBytes) / speed * float64(time.Second))
		etaStr = format.FormatDurationHMS(remaining) + " remaining"
	} else {
		etaStr = "calculating..."
	}

	pbs.LastUpdateTime = time.Now()
	pbs.LastProcessedBytes = pbs.ProcessedBytes

	// \r moves the cursor to the beginning of the line, trailing spaces
	// clear leftovers of a previous longer line.
	fmt.Fprintf(pbs.out, "\r[INFO] %s: [%s] %3.0f%% (%s/%s) | @ %s/s [%s]    ",
		pbs.Label,
		bar,
		percentage,
		format.FormatBytes(pbs.ProcessedBytes),
		format.FormatBytes(pbs.TotalBytes),
		format.FormatBytes(int64(speed)),
		etaStr)
}

// Finish draws the final state and moves to the next line
func (pbs *ProgressBarState) Finish() {
	pbs.Render(true)
	fmt.Fprintln(pbs.out)
}

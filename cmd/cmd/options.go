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
package cmd

import (
	"fmt"
	"os"

	"github.com/ostafen/lmtrie"
	"github.com/ostafen/lmtrie/internal/trie"
	"github.com/ostafen/lmtrie/pkg/arrays"
	"github.com/ostafen/lmtrie/pkg/pbar"
	"github.com/spf13/cobra"
)

func addModelFlags(cmd *cobra.Command) {
	defaults := trie.DefaultOptions()

	cmd.Flags().StringP("layout", "l", defaults.Layout.String(), "trie layout used to store the model (see the layouts command)")
	cmd.Flags().Bool("hashing-index", false, "derive word ids by hashing instead of assigning them sequentially")
	cmd.Flags().Bool("no-cache", false, "disable the bitmap hash cache")
	cmd.Flags().Float64("cache-fp-rate", defaults.CacheFalsePositiveRate, "target false positive rate of the bitmap hash cache")
	cmd.Flags().Int("words-per-bucket", defaults.WordsPerBucket, "average number of m-grams per hash bucket")
	cmd.Flags().String("growth", "factor", "growth strategy of dynamic arrays (linear, doubling, factor)")
	cmd.Flags().Bool("interpolation", false, "use interpolation search in the word to context layout")
	cmd.Flags().Bool("no-progress", false, "do not display the loading progress bar")
}

func parseOptions(cmd *cobra.Command) (lmtrie.Options, error) {
	opts := lmtrie.DefaultOptions()

	layoutName, _ := cmd.Flags().GetString("layout")
	layout, err := trie.ParseLayout(layoutName)
	if err != nil {
		return opts, err
	}

	growthName, _ := cmd.Flags().GetString("growth")
	growth, err := arrays.ParseStrategy(growthName)
	if err != nil {
		return opts, err
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	fpRate, _ := cmd.Flags().GetFloat64("cache-fp-rate")
	wordsPerBucket, _ := cmd.Flags().GetInt("words-per-bucket")
	if wordsPerBucket <= 0 {
		return opts, fmt.Errorf("words-per-bucket must be positive, got %d", wordsPerBucket)
	}

	opts.Layout = layout
	opts.Growth = growth
	opts.BitmapCache = !noCache
	opts.CacheFalsePositiveRate = fpRate
	opts.WordsPerBucket = wordsPerBucket
	opts.UseInterpolationSearch, _ = cmd.Flags().GetBool("interpolation")
	opts.HashingIndex, _ = cmd.Flags().GetBool("hashing-index")
	return opts, nil
}

// openModel loads the model at path reporting progress on the console.
func openModel(cmd *cobra.Command, s *session, path string) (*lmtrie.Model, error) {
	opts, err := parseOptions(cmd)
	if err != nil {
		return nil, err
	}
	opts.Logger = s.diag

	finfo, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	s.console.Infof("Loading model: \t%s", absPath(path))
	s.console.Infof("Layout: \t%s (%s)", opts.Layout, opts.Layout.Description())
	if s.logPath != "" {
		s.console.Infof("Output Log: \t%s", s.logPath)
	}

	var pb *pbar.ProgressBarState
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress {
		pb = pbar.NewProgressBarState(cmd.ErrOrStderr(), "Loading", finfo.Size())
		opts.Progress = pb.Update
	}

	m, err := lmtrie.Open(path, opts)
	if pb != nil {
		pb.Finish()
	}
	return m, err
}

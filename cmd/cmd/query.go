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
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ostafen/lmtrie"
	"github.com/ostafen/lmtrie/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <model.arpa> [input]",
		Short: "Compute the probability of word sequences",
		Long: `The 'query' command loads an ARPA language model and scores each line of the input,
read from the given file or from standard input. For every word it prints the conditional
log10 probability given the preceding words, followed by the cumulative probability of the line.`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE:         RunQuery,
	}

	addModelFlags(cmd)
	cmd.Flags().IntP("workers", "w", runtime.NumCPU(), "number of concurrent query workers")
	cmd.Flags().String("max-line-size", "64KB", "maximum size of an input line")
	return cmd
}

type queryJob struct {
	line   int
	tokens []string
}

type queryResult struct {
	line int
	res  lmtrie.Result
	err  error
}

func RunQuery(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", workers)
	}

	maxLineSizeStr, _ := cmd.Flags().GetString("max-line-size")
	maxLineSize, err := format.ParseBytes(maxLineSizeStr)
	if err != nil {
		return err
	}
	if maxLineSize == 0 {
		return fmt.Errorf("max-line-size must be positive")
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 2 {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	m, err := openModel(cmd, s, args[0])
	if err != nil {
		return err
	}
	defer m.Close()

	start := time.Now()
	queries, failed, err := runQueries(m, in, cmd.OutOrStdout(), s, workers, int(maxLineSize))
	if err != nil {
		return err
	}

	s.console.Info("Query completed!")
	s.console.Infof("Queries: \t%d", queries)
	if failed > 0 {
		s.console.Warnf("Failed: \t%d", failed)
	}
	s.console.Infof("Duration: \t%s", format.FormatDurationHMS(time.Since(start)))
	return nil
}

// runQueries scores the lines of in on a pool of workers, each owning its
// query state, and prints the results in input order.
func runQueries(m *lmtrie.Model, in io.Reader, out io.Writer, s *session, workers, maxLineSize int) (int, int, error) {
	jobs := make(chan queryJob, workers)
	results := make(chan queryResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			q := m.NewQuery()
			for job := range jobs {
				err := q.Execute(job.tokens)
				if err != nil {
					results <- queryResult{line: job.line, err: err}
					continue
				}
				results <- queryResult{line: job.line, res: q.Result()}
			}
		}()
	}

	var (
		queries, failed int
		printed         = make(chan struct{})
	)
	go func() {
		defer close(printed)

		pending := make(map[int]queryResult)
		next := 0
		for r := range results {
			pending[r.line] = r
			for {
				r, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++

				queries++
				if r.err != nil {
					failed++
					s.console.Errorf("query %d: %s", r.line+1, r.err)
					continue
				}
				fmt.Fprintf(out, "%s\n\n", r.res)
			}
		}
	}()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, min(maxLineSize, 64*1024)), maxLineSize)

	line := 0
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		jobs <- queryJob{line: line, tokens: tokens}
		line++
	}
	close(jobs)

	wg.Wait()
	close(results)
	<-printed

	if err := scanner.Err(); err != nil {
		return queries, failed, fmt.Errorf("failed to read input: %w", err)
	}
	return queries, failed, nil
}

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
	"text/tabwriter"

	"github.com/ostafen/lmtrie/internal/env"
	"github.com/ostafen/lmtrie/pkg/sysinfo"
	"github.com/ostafen/lmtrie/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <model.arpa>",
		Short: "Load a model and report its memory footprint",
		Long: `The 'stats' command loads an ARPA language model with the selected layout and prints
the number of m-grams stored per level, the memory used by the trie and its bitmap caches,
and the resources of the host process.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunStats,
	}

	addModelFlags(cmd)
	return cmd
}

func RunStats(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	m, err := openModel(cmd, s, args[0])
	if err != nil {
		return err
	}
	defer m.Close()

	st := m.Stats()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Model:\t%s (%s)\n", st.Source, format.FormatBytes(st.SourceBytes))
	fmt.Fprintf(out, "Layout:\t%s\n", st.Layout)
	fmt.Fprintf(out, "Level:\t%d\n", st.MaxLevel)
	fmt.Fprintf(out, "Load time:\t%s\n", format.FormatDurationHMS(st.LoadDuration))
	fmt.Fprintf(out, "Trie memory:\t%s\n", format.FormatBytes(st.MemoryBytes))
	if st.Skipped > 0 {
		fmt.Fprintf(out, "Skipped m-grams:\t%d\n", st.Skipped)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tDECLARED\tSTORED")
	for i := range st.Declared {
		fmt.Fprintf(w, "%d\t%d\t%d\n", i+1, st.Declared[i], st.Added[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(st.Caches) > 0 {
		fmt.Fprintln(out)

		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CACHE LEVEL\tSIZE\tHASHES\tFILL\tEST. FP RATE")
		for i, c := range st.Caches {
			fmt.Fprintf(w, "%d\t%s\t%d\t%.2f%%\t%.4f\n",
				i+2,
				format.FormatBytes(c.Bytes),
				c.Hashes,
				c.FillRatio*100,
				c.EstimatedFP,
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	info := sysinfo.Stat()
	mem := sysinfo.Memory()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s (commit %s)\n", env.AppName, env.Version, env.CommitHash)
	fmt.Fprintf(out, "Host:\t%s %s %s, %d CPUs, %s\n", info.Name, info.Release, info.Version, info.NumCPU, info.GoVersion)
	fmt.Fprintf(out, "Heap in use:\t%s\n", format.FormatBytes(int64(mem.HeapInUse)))
	fmt.Fprintf(out, "Runtime total:\t%s\n", format.FormatBytes(int64(mem.Sys)))
	return nil
}

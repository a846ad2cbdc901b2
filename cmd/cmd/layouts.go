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

	"github.com/ostafen/lmtrie/internal/trie"
	"github.com/spf13/cobra"
)

func DefineLayoutsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layouts",
		Short: "List all supported trie layouts",
		Long: `The 'layouts' command displays a table of the trie layouts a model can be loaded with.
Array layouts require a continuous word index, so they cannot be combined with --hashing-index.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         RunLayouts,
	}
}

func RunLayouts(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESC\tHASHING INDEX\tBITMAP CACHE")

	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}

	for _, l := range trie.Layouts() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			l,
			l.Description(),
			yesNo(!l.RequiresContinuousIndex()),
			yesNo(l.UsesBitmapCache()),
		)
	}
	return w.Flush()
}

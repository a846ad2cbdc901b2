package arpa_test

import (
	"strings"
	"testing"

	"github.com/ostafen/lmtrie/internal/arpa"
	"github.com/ostafen/lmtrie/internal/mgram"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	counts []int
	grams  [][]mgram.ModelGram
	sealed []int
}

func (r *recorder) PreAllocate(counts []int) error {
	r.counts = counts
	r.grams = make([][]mgram.ModelGram, len(counts))
	return nil
}

func (r *recorder) AddGram(g *mgram.ModelGram) error {
	r.grams[g.Level()-1] = append(r.grams[g.Level()-1], mgram.ModelGram{
		Tokens:  append([]string(nil), g.Tokens...),
		Payload: g.Payload,
	})
	return nil
}

func (r *recorder) PostGrams(level int) error {
	r.sealed = append(r.sealed, level)
	return nil
}

const testARPA = `some header text

\data\
ngram 1=4
ngram 2=2
ngram 3=1

\1-grams:
-1.0	<s>	-0.5
-0.8	hello	-0.3
-1.2	world
-99	</s>

\2-grams:
-0.4	<s> hello	-0.1
-0.6 hello world

\3-grams:
-0.2	<s> hello world

\end\
`

func TestLoad(t *testing.T) {
	var rec recorder
	var progress int64

	err := arpa.Load(strings.NewReader(testARPA), &rec, func(read int64) { progress = read })
	require.NoError(t, err)

	require.Equal(t, []int{4, 2, 1}, rec.counts)
	require.Equal(t, []int{1, 2, 3}, rec.sealed)
	require.Equal(t, int64(len(testARPA)), progress)

	require.Equal(t, []string{"hello"}, rec.grams[0][1].Tokens)
	require.Equal(t, mgram.Payload{Prob: -0.8, Back: -0.3}, rec.grams[0][1].Payload)
	require.Equal(t, mgram.Payload{Prob: -1.2}, rec.grams[0][2].Payload)

	require.Equal(t, []string{"hello", "world"}, rec.grams[1][1].Tokens)
	require.Equal(t, mgram.Payload{Prob: -0.6}, rec.grams[1][1].Payload)

	require.Equal(t, []string{"<s>", "hello", "world"}, rec.grams[2][0].Tokens)
	require.Equal(t, mgram.Payload{Prob: -0.2}, rec.grams[2][0].Payload)
}

type defaultingRecorder struct {
	recorder
}

func (r *defaultingRecorder) ZeroBackOffWeight() float32 { return -0.05 }

func TestLoadZeroBackOffWeight(t *testing.T) {
	var rec defaultingRecorder
	require.NoError(t, arpa.Load(strings.NewReader(testARPA), &rec, nil))

	require.Equal(t, mgram.Payload{Prob: -1.2, Back: -0.05}, rec.grams[0][2].Payload)
	require.Equal(t, mgram.Payload{Prob: -0.8, Back: -0.3}, rec.grams[0][1].Payload)
	require.Equal(t, mgram.Payload{Prob: -0.6, Back: -0.05}, rec.grams[1][1].Payload)

	// Grams of the last level get the default too, it is never read.
	require.Equal(t, mgram.Payload{Prob: -0.2, Back: -0.05}, rec.grams[2][0].Payload)
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name  string
		model string
	}{
		{"no data", "\\1-grams:\n-1 a\n\\end\\\n"},
		{"no counts", "\\data\\\n\\1-grams:\n"},
		{"single level", "\\data\\\nngram 1=1\n\n\\1-grams:\n-1 a\n\\end\\\n"},
		{"bad count", "\\data\\\nngram 1=x\nngram 2=1\n"},
		{"skipped level", "\\data\\\nngram 1=1\nngram 3=1\n"},
		{"count mismatch", strings.Replace(testARPA, "ngram 2=2", "ngram 2=3", 1)},
		{"bad prob", strings.Replace(testARPA, "-0.2\t<s>", "x\t<s>", 1)},
		{"too many words", strings.Replace(testARPA, "-1.2\tworld", "-1.2\tworld\tx\ty", 1)},
		{"back-off at last level", strings.Replace(testARPA, "<s> hello world\n", "<s> hello world\t-0.1\n", 1)},
		{"missing end", strings.Replace(testARPA, "\\end\\", "", 1)},
		{"missing section", strings.Replace(testARPA, "\\2-grams:", "\\4-grams:", 1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var rec recorder
			err := arpa.Load(strings.NewReader(tc.model), &rec, nil)
			require.ErrorIs(t, err, arpa.ErrMalformed)
		})
	}
}

package trie_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/ostafen/lmtrie/internal/arpa"
	"github.com/ostafen/lmtrie/internal/trie"
	"github.com/ostafen/lmtrie/internal/wordindex"
	"github.com/stretchr/testify/require"
)

const scenarioARPA = `
\data\
ngram 1=3
ngram 2=1

\1-grams:
-1.0	a	0.0
-2.0	b	0.0
-3.0	<unk>	0.0

\2-grams:
-0.5	a b

\end\
`

type config struct {
	name    string
	opts    trie.Options
	hashing bool
}

func (c config) index() wordindex.Index {
	if c.hashing {
		return wordindex.NewHashing()
	}
	return wordindex.NewBasic()
}

func configs() []config {
	var cfgs []config
	for _, layout := range trie.Layouts() {
		opts := trie.DefaultOptions()
		opts.Layout = layout
		cfgs = append(cfgs, config{name: layout.String(), opts: opts})

		noCache := opts
		noCache.BitmapCache = false
		cfgs = append(cfgs, config{name: layout.String() + "/nocache", opts: noCache})
	}

	interp := trie.DefaultOptions()
	interp.UseInterpolationSearch = true
	cfgs = append(cfgs, config{name: "w2ca/interpolation", opts: interp})
	return cfgs
}

func hashingConfigs() []config {
	var cfgs []config
	for _, layout := range []trie.Layout{trie.G2DMap, trie.C2DMap} {
		opts := trie.DefaultOptions()
		opts.Layout = layout
		cfgs = append(cfgs, config{name: layout.String() + "/hashing", opts: opts, hashing: true})
	}
	return cfgs
}

func load(t *testing.T, cfg config, model string, logger *slog.Logger) *trie.Driver {
	t.Helper()

	d, err := trie.New(cfg.index(), cfg.opts, logger)
	require.NoError(t, err)

	require.NoError(t, arpa.Load(strings.NewReader(model), d, nil))
	require.Equal(t, trie.StateReady, d.State())

	t.Cleanup(func() { require.NoError(t, d.Close()) })
	return d
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

type gram struct {
	words []string
	prob  float32
	back  float32
}

// randomModel generates a model whose m-gram prefixes are all present at
// the lower level.
type randomModel struct {
	vocab  []string
	levels [][]gram
	lookup map[string]gram
}

func newRandomModel(r *rand.Rand, vocabSize int, counts []int) *randomModel {
	m := &randomModel{lookup: make(map[string]gram)}

	for i := 0; i < vocabSize; i++ {
		m.vocab = append(m.vocab, fmt.Sprintf("w%d", i))
	}

	randWeight := func(lo, hi float64) float32 {
		return float32(int((lo+r.Float64()*(hi-lo))*1000)) / 1000
	}

	for level := 1; level <= len(counts); level++ {
		var grams []gram
		seen := make(map[string]bool)

		for attempts := 0; len(grams) < counts[level-1] && attempts < counts[level-1]*20; attempts++ {
			var words []string
			if level == 1 {
				words = []string{m.vocab[len(grams)]}
			} else {
				prefix := m.levels[level-2][r.Intn(len(m.levels[level-2]))]
				words = append(append([]string(nil), prefix.words...), m.vocab[r.Intn(vocabSize)])
			}

			key := strings.Join(words, " ")
			if seen[key] {
				continue
			}
			seen[key] = true

			g := gram{words: words, prob: randWeight(-5, -0.1)}
			if level < len(counts) {
				g.back = randWeight(-1, 0)
			}
			grams = append(grams, g)
			m.lookup[key] = g
		}
		m.levels = append(m.levels, grams)
	}
	return m
}

func (m *randomModel) arpa() string {
	var sb strings.Builder

	sb.WriteString("\\data\\\n")
	for i, grams := range m.levels {
		fmt.Fprintf(&sb, "ngram %d=%d\n", i+1, len(grams))
	}

	for i, grams := range m.levels {
		fmt.Fprintf(&sb, "\n\\%d-grams:\n", i+1)

		shuffled := append([]gram(nil), grams...)
		sort.Slice(shuffled, func(a, b int) bool {
			return strings.Join(shuffled[a].words, " ") > strings.Join(shuffled[b].words, " ")
		})

		for _, g := range shuffled {
			fmt.Fprintf(&sb, "%g\t%s", g.prob, strings.Join(g.words, " "))
			if i < len(m.levels)-1 {
				fmt.Fprintf(&sb, "\t%g", g.back)
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n\\end\\\n")
	return sb.String()
}

// condProb is a plain Katz back-off over the generated grams.
func (m *randomModel) condProb(words []string, unk float32) float32 {
	end := words[len(words)-1]
	if _, ok := m.lookup[end]; !ok {
		return unk
	}

	if g, ok := m.lookup[strings.Join(words, " ")]; ok {
		return g.prob
	}

	var back float32
	if g, ok := m.lookup[strings.Join(words[:len(words)-1], " ")]; ok {
		back = g.back
	}
	return back + m.condProb(words[1:], unk)
}

func (m *randomModel) randomQuery(r *rand.Rand, maxLen int, unkRate float64) []string {
	n := 1 + r.Intn(maxLen)

	// start from an existing gram half of the time, so that
	// long matches are exercised
	var words []string
	if r.Intn(2) == 0 {
		level := m.levels[min(n, len(m.levels))-1]
		words = append(words, level[r.Intn(len(level))].words...)
	}

	for len(words) < n {
		if r.Float64() < unkRate {
			words = append(words, "<xyz>")
			continue
		}
		words = append(words, m.vocab[r.Intn(len(m.vocab))])
	}
	return words[:n]
}

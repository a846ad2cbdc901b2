package trie_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/ostafen/lmtrie/internal/arpa"
	"github.com/ostafen/lmtrie/internal/mgram"
	"github.com/ostafen/lmtrie/internal/trie"
	"github.com/ostafen/lmtrie/internal/wordindex"
	"github.com/stretchr/testify/require"
)

func TestScenario(t *testing.T) {
	for _, cfg := range append(configs(), hashingConfigs()...) {
		t.Run(cfg.name, func(t *testing.T) {
			d := load(t, cfg, scenarioARPA, nil)
			q := d.NewQuery()

			require.NoError(t, q.Execute([]string{"a", "b"}))
			res := q.Result()
			require.Equal(t, []trie.PrefixProb{
				{Status: trie.GoodPresent, LogProb: -1.0},
				{Status: trie.GoodPresent, LogProb: -0.5},
			}, res.Prefixes)
			require.InDelta(t, -1.5, res.Total, 1e-6)

			require.NoError(t, q.Execute([]string{"b", "a"}))
			res = q.Result()
			require.Equal(t, trie.BadNoPayload, res.Last().Status)
			require.InDelta(t, -2.0, res.Prefixes[0].LogProb, 1e-6)
			require.InDelta(t, -1.0, res.Prefixes[1].LogProb, 1e-6)
			require.InDelta(t, -3.0, res.Total, 1e-6)
		})
	}
}

func TestUnseenWord(t *testing.T) {
	for _, cfg := range configs() {
		t.Run(cfg.name, func(t *testing.T) {
			d := load(t, cfg, scenarioARPA, nil)
			require.Equal(t, mgram.Payload{Prob: -3.0}, d.UnkPayload())

			q := d.NewQuery()

			require.NoError(t, q.Execute([]string{"<xyz>"}))
			require.Equal(t, trie.PrefixProb{Status: trie.BadEndWordUnknown, LogProb: -3.0}, q.Result().Last())

			require.NoError(t, q.Execute([]string{"a", "<xyz>"}))
			require.Equal(t, trie.PrefixProb{Status: trie.BadEndWordUnknown, LogProb: -3.0}, q.Result().Last())
			require.InDelta(t, -4.0, q.Total(), 1e-6)

			require.NoError(t, q.Execute([]string{"<xyz>", "b"}))
			require.Equal(t, trie.PrefixProb{Status: trie.BadNoPayload, LogProb: -2.0}, q.Result().Last())
		})
	}
}

func TestUnseenWordHashingIndex(t *testing.T) {
	for _, cfg := range hashingConfigs() {
		t.Run(cfg.name, func(t *testing.T) {
			d := load(t, cfg, scenarioARPA, nil)
			q := d.NewQuery()

			require.NoError(t, q.Execute([]string{"<xyz>"}))
			require.Equal(t, trie.PrefixProb{Status: trie.BadNoPayload, LogProb: -3.0}, q.Result().Last())
		})
	}
}

func TestDefaultUnkPayload(t *testing.T) {
	model := `
\data\
ngram 1=2
ngram 2=1

\1-grams:
-1.0	a	-0.25
-2.0	b

\2-grams:
-0.5	a b
\end\
`
	cfg := configs()[0]
	d := load(t, cfg, model, nil)

	q := d.NewQuery()
	require.NoError(t, q.Execute([]string{"zzz"}))
	require.Equal(t, trie.UnkWordLogProbWeight, q.Total())

	require.NoError(t, q.Execute([]string{"a", "a"}))
	require.InDelta(t, -1.25, q.Result().Last().LogProb, 1e-6)
}

func TestZeroThreshold(t *testing.T) {
	cfg := configs()[0]
	cfg.opts.UnkWordLogProbWeight = -120

	model := strings.Replace(scenarioARPA, "-3.0\t<unk>\t0.0\n", "", 1)
	model = strings.Replace(model, "ngram 1=3", "ngram 1=2", 1)

	d := load(t, cfg, model, nil)
	q := d.NewQuery()

	require.NoError(t, q.Execute([]string{"<xyz>", "b"}))
	res := q.Result()
	require.Equal(t, float32(-120), res.Prefixes[0].LogProb)
	require.InDelta(t, -2.0, res.Total, 1e-6)
}

func TestCollision(t *testing.T) {
	model := `
\data\
ngram 1=3
ngram 2=3

\1-grams:
-1.0	a	0.0
-2.0	b	0.0
-1.5	a	-0.1

\2-grams:
-0.5	a b
-0.7	b a
-0.25	a b

\end\
`
	for _, cfg := range append(configs(), hashingConfigs()...) {
		t.Run(cfg.name, func(t *testing.T) {
			logger, buf := bufferLogger()
			d := load(t, cfg, model, logger)

			require.Equal(t, 2, strings.Count(buf.String(), "m-gram collision"))
			require.Contains(t, buf.String(), "level=WARN")

			q := d.NewQuery()
			require.NoError(t, q.Execute([]string{"a", "b"}))
			res := q.Result()
			require.Equal(t, float32(-1.5), res.Prefixes[0].LogProb)
			require.Equal(t, float32(-0.25), res.Prefixes[1].LogProb)

			require.NoError(t, q.Execute([]string{"b", "a"}))
			require.Equal(t, float32(-0.7), q.Result().Last().LogProb)
		})
	}
}

func TestCrossLayoutEquivalence(t *testing.T) {
	r := rand.New(rand.NewSource(1234))
	model := newRandomModel(r, 60, []int{60, 400, 600, 500})
	text := model.arpa()

	var drivers []*trie.Driver
	for _, cfg := range configs() {
		drivers = append(drivers, load(t, cfg, text, nil))
	}

	queries := make([]*trie.Query, len(drivers))
	for i, d := range drivers {
		queries[i] = d.NewQuery()
	}

	for i := 0; i < 3000; i++ {
		words := model.randomQuery(r, 4, 0.05)

		var want float32
		for end := range words {
			p := model.condProb(words[:end+1], trie.UnkWordLogProbWeight)
			want += p
		}

		for j, q := range queries {
			require.NoError(t, q.Execute(words))
			require.InDelta(t, want, q.Total(), 1e-4, "%s: %v", configs()[j].name, words)

			if j > 0 {
				require.Equal(t, queries[0].Result().Prefixes, q.Result().Prefixes, "%s: %v", configs()[j].name, words)
			}
		}
	}
}

func TestCrossLayoutEquivalenceHashing(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	model := newRandomModel(r, 40, []int{40, 200, 300})
	text := model.arpa()

	var queries []*trie.Query
	for _, cfg := range hashingConfigs() {
		queries = append(queries, load(t, cfg, text, nil).NewQuery())
	}

	for i := 0; i < 2000; i++ {
		words := model.randomQuery(r, 3, 0)

		var want float32
		for end := range words {
			want += model.condProb(words[:end+1], trie.UnkWordLogProbWeight)
		}

		for _, q := range queries {
			require.NoError(t, q.Execute(words))
			require.InDelta(t, want, q.Total(), 1e-4, "%v", words)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	model := newRandomModel(r, 50, []int{50, 300, 300, 200, 100})
	text := model.arpa()

	for _, cfg := range append(configs(), hashingConfigs()...) {
		t.Run(cfg.name, func(t *testing.T) {
			d := load(t, cfg, text, nil)

			for level, grams := range model.levels {
				for _, g := range grams {
					var q mgram.Query
					require.NoError(t, q.Set(g.words, d.Index()))

					prob := float32(1)
					st := d.GetProbWeight(&q, 0, level, &prob)
					require.Equal(t, trie.GoodPresent, st, "%v", g.words)
					require.Equal(t, g.prob, prob)

					if level+1 < d.MaxLevel() {
						var back float32
						d.AddBackOffWeight(&q, 0, level, &back)
						require.Equal(t, g.back, back)
					}
				}
			}
		})
	}
}

func TestGetProbWeightMissLeavesValue(t *testing.T) {
	d := load(t, configs()[0], scenarioARPA, nil)

	var q mgram.Query
	require.NoError(t, q.Set([]string{"b", "b"}, d.Index()))

	prob := float32(42)
	require.Equal(t, trie.BadNoPayload, d.GetProbWeight(&q, 0, 1, &prob))
	require.Equal(t, float32(42), prob)

	back := float32(1)
	d.AddBackOffWeight(&q, 0, 1, &back)
	require.Equal(t, float32(1), back)

	require.Panics(t, func() { d.GetProbWeight(&q, 1, 0, &prob) })
}

func TestLifecycle(t *testing.T) {
	d, err := trie.New(wordindex.NewBasic(), trie.DefaultOptions(), nil)
	require.NoError(t, err)
	require.Equal(t, trie.StateCreated, d.State())

	g := &mgram.ModelGram{Tokens: []string{"a"}}
	require.ErrorIs(t, d.AddGram(g), trie.ErrInvalidState)
	require.ErrorIs(t, d.NewQuery().Execute([]string{"a"}), trie.ErrInvalidState)

	require.ErrorIs(t, d.PreAllocate([]int{1}), mgram.ErrInvalidLevel)
	require.ErrorIs(t, d.PreAllocate(make([]int, mgram.MaxLevel+1)), mgram.ErrInvalidLevel)

	require.NoError(t, d.PreAllocate([]int{1, 1}))
	require.ErrorIs(t, d.PreAllocate([]int{1, 1}), trie.ErrInvalidState)

	require.ErrorIs(t, d.AddGram(&mgram.ModelGram{Tokens: []string{"a", "b"}}), trie.ErrInvalidState)
	require.NoError(t, d.AddGram(g))
	require.ErrorIs(t, d.PostGrams(2), trie.ErrInvalidState)
	require.NoError(t, d.PostGrams(1))
	require.ErrorIs(t, d.AddGram(g), trie.ErrInvalidState)

	require.NoError(t, d.AddGram(&mgram.ModelGram{Tokens: []string{"a", "a"}, Payload: mgram.Payload{Prob: -0.1}}))
	require.NoError(t, d.PostGrams(2))
	require.Equal(t, trie.StateReady, d.State())

	require.ErrorIs(t, d.NewQuery().Execute([]string{"a", "a", "a"}), trie.ErrQueryTooLong)
	require.NoError(t, d.NewQuery().Execute([]string{"a", "a"}))

	require.NoError(t, d.Close())
	require.Equal(t, trie.StateClosed, d.State())
	require.NoError(t, d.Close())
}

func TestNonContinuousIndex(t *testing.T) {
	for _, layout := range []trie.Layout{trie.W2CArray, trie.C2WArray} {
		opts := trie.DefaultOptions()
		opts.Layout = layout

		_, err := trie.New(wordindex.NewHashing(), opts, nil)
		require.ErrorIs(t, err, trie.ErrNotContinuous)
	}
}

func TestInterpolationNotImplemented(t *testing.T) {
	opts := trie.DefaultOptions()
	opts.Layout = trie.C2WArray
	opts.UseInterpolationSearch = true

	_, err := trie.New(wordindex.NewBasic(), opts, nil)
	require.ErrorIs(t, err, trie.ErrNotImplemented)
}

func TestUnknownWordsInMGrams(t *testing.T) {
	model := `
\data\
ngram 1=2
ngram 2=2

\1-grams:
-1.0	a	0.0
-3.0	<unk>	0.0

\2-grams:
-0.5	a <unk>
-0.5	a a
\end\
`
	for _, cfg := range configs() {
		t.Run(cfg.name, func(t *testing.T) {
			logger, buf := bufferLogger()
			d := load(t, cfg, model, logger)

			require.Contains(t, buf.String(), "skipping m-gram")
			require.Equal(t, 1, d.Stats().Skipped)
		})
	}

	missing := strings.Replace(model, "a <unk>", "a c", 1)
	d, err := trie.New(wordindex.NewBasic(), trie.DefaultOptions(), nil)
	require.NoError(t, err)
	require.ErrorIs(t, arpa.Load(strings.NewReader(missing), d, nil), trie.ErrUnknownWord)
}

func TestContextNotFound(t *testing.T) {
	model := `
\data\
ngram 1=2
ngram 2=1
ngram 3=1

\1-grams:
-1.0	a	0.0
-1.0	b	0.0

\2-grams:
-0.5	a b	0.0

\3-grams:
-0.5	b a b
\end\
`
	for _, layout := range []trie.Layout{trie.W2CArray, trie.C2WArray, trie.C2DMap} {
		opts := trie.DefaultOptions()
		opts.Layout = layout

		d, err := trie.New(wordindex.NewBasic(), opts, nil)
		require.NoError(t, err)
		require.ErrorIs(t, arpa.Load(strings.NewReader(model), d, nil), trie.ErrContextNotFound, layout.String())
	}
}

func TestStats(t *testing.T) {
	for _, cfg := range configs() {
		t.Run(cfg.name, func(t *testing.T) {
			d := load(t, cfg, scenarioARPA, nil)

			st := d.Stats()
			require.Equal(t, cfg.opts.Layout, st.Layout)
			require.Equal(t, 2, st.MaxLevel)
			require.Equal(t, []int{3, 1}, st.Declared)
			require.Equal(t, []int{3, 1}, st.Added)
			require.Greater(t, st.MemoryBytes, int64(0))

			if cfg.opts.BitmapCache && cfg.opts.Layout.UsesBitmapCache() {
				require.Len(t, st.Caches, 1)
			} else {
				require.Empty(t, st.Caches)
			}
		})
	}
}

func TestResultString(t *testing.T) {
	d := load(t, configs()[0], scenarioARPA, nil)

	q := d.NewQuery()
	require.NoError(t, q.Execute([]string{"a", "b"}))

	require.Equal(t,
		"log_10( Prob( a ) ) = -1\n"+
			"log_10( Prob( b | a ) ) = -0.5\n"+
			"log_10( Prob( a b ) ) = -1.5",
		q.Result().String(),
	)
}

func TestLayouts(t *testing.T) {
	for _, l := range trie.Layouts() {
		parsed, err := trie.ParseLayout(strings.ToUpper(l.String()))
		require.NoError(t, err)
		require.Equal(t, l, parsed)
		require.NotEmpty(t, l.Description())
	}

	_, err := trie.ParseLayout("h2dm")
	require.ErrorIs(t, err, trie.ErrUnknownLayout)
}

func TestUnseenWordBackOff(t *testing.T) {
	model := strings.Replace(scenarioARPA, "-3.0\t<unk>\t0.0", "-3.0\t<unk>\t-0.4", 1)

	for _, cfg := range append(configs(), hashingConfigs()...) {
		t.Run(cfg.name, func(t *testing.T) {
			d := load(t, cfg, model, nil)
			q := d.NewQuery()

			require.NoError(t, q.Execute([]string{"<xyz>", "b"}))
			res := q.Result()
			require.Equal(t, trie.BadNoPayload, res.Last().Status)
			require.InDelta(t, -2.4, res.Last().LogProb, 1e-6)
			require.InDelta(t, -5.4, res.Total, 1e-6)

			// A known context keeps its own back-off.
			require.NoError(t, q.Execute([]string{"b", "a"}))
			require.InDelta(t, -1.0, q.Result().Last().LogProb, 1e-6)
		})
	}
}

func TestG2DMapReleasesEveryGram(t *testing.T) {
	model := `
\data\
ngram 1=3
ngram 2=3
ngram 3=2

\1-grams:
-1.0	a	-0.1
-1.0	b	-0.1
-1.0	c	-0.1

\2-grams:
-0.5	a b	-0.2
-0.5	b c	-0.2
-0.4	a b	-0.3

\3-grams:
-0.3	a b c
-0.2	a b c
\end\
`
	opts := trie.DefaultOptions()
	opts.Layout = trie.G2DMap

	logger, _ := bufferLogger()
	backend := trie.NewG2DMap(opts, logger)
	d, err := trie.NewDriver(backend, wordindex.NewBasic(), opts, logger)
	require.NoError(t, err)
	require.NoError(t, arpa.Load(strings.NewReader(model), d, nil))

	codec := mgram.NewIDCodec(d.Index().MaxWordID())

	// collisions free one id per level before release
	require.Equal(t, int64(codec.Len(2)+codec.Len(3)), backend.FreedBytes())

	require.NoError(t, d.Close())
	require.Equal(t, int64(3*codec.Len(2)+2*codec.Len(3)), backend.FreedBytes())

	// closing twice does not release again
	require.NoError(t, d.Close())
	require.Equal(t, int64(3*codec.Len(2)+2*codec.Len(3)), backend.FreedBytes())
}

// countingBackend records how many times each sub-gram is looked up.
type countingBackend struct {
	trie.Backend
	lookups map[[2]int]int
}

func (b *countingBackend) GetMGramPayload(q *mgram.Query, begin, end int) (mgram.Payload, bool) {
	b.lookups[[2]int{begin, end}]++
	return b.Backend.GetMGramPayload(q, begin, end)
}

func TestSubGramLookedUpOnce(t *testing.T) {
	model := `
\data\
ngram 1=4
ngram 2=2
ngram 3=1

\1-grams:
-1.0	a	-0.1
-1.5	b	-0.2
-2.0	c	-0.3
-2.5	d	-0.4

\2-grams:
-0.5	a b	-0.25
-0.6	b c	-0.15

\3-grams:
-0.3	a b c
\end\
`
	opts := trie.DefaultOptions()
	opts.BitmapCache = false

	backend, err := trie.NewBackend(opts, nil)
	require.NoError(t, err)

	counting := &countingBackend{Backend: backend, lookups: make(map[[2]int]int)}
	d, err := trie.NewDriver(counting, wordindex.NewBasic(), opts, nil)
	require.NoError(t, err)
	require.NoError(t, arpa.Load(strings.NewReader(model), d, nil))
	defer d.Close()

	q := d.NewQuery()
	require.NoError(t, q.Execute([]string{"a", "b", "d"}))

	// P(d | a b) = back(a b) + back(b) + P(d)
	require.InDelta(t, -0.25-0.2-2.5, q.Result().Last().LogProb, 1e-6)
	require.Equal(t, map[[2]int]int{{0, 1}: 1, {1, 2}: 1}, counting.lookups)

	// the memo is reset by the next query
	require.NoError(t, q.Execute([]string{"a", "b", "d"}))
	require.Equal(t, map[[2]int]int{{0, 1}: 2, {1, 2}: 2}, counting.lookups)
}

func TestEmptyResult(t *testing.T) {
	require.Equal(t, trie.PrefixProb{}, trie.Result{}.Last())
}

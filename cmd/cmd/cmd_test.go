package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ostafen/lmtrie/cmd/cmd"
	"github.com/stretchr/testify/require"
)

const model = `
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

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := cmd.NewRootCommand()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLayoutsCommand(t *testing.T) {
	out, _, err := run(t, "", "layouts")
	require.NoError(t, err)

	for _, name := range []string{"NAME", "w2ca", "c2wa", "g2dm", "c2dm"} {
		require.Contains(t, out, name)
	}
}

func TestQueryCommand(t *testing.T) {
	modelPath := writeFile(t, "model.arpa", model)

	for _, layout := range []string{"w2ca", "c2wa", "g2dm", "c2dm"} {
		t.Run(layout, func(t *testing.T) {
			out, _, err := run(t, "a b\n\nb a\n",
				"query", modelPath, "--layout", layout, "--workers", "3", "--no-progress")
			require.NoError(t, err)

			require.Equal(t,
				"log_10( Prob( a ) ) = -1\n"+
					"log_10( Prob( b | a ) ) = -0.5\n"+
					"log_10( Prob( a b ) ) = -1.5\n\n"+
					"log_10( Prob( b ) ) = -2\n"+
					"log_10( Prob( a | b ) ) = -1\n"+
					"log_10( Prob( b a ) ) = -3\n\n",
				out)
		})
	}
}

func TestQueryCommandInputFile(t *testing.T) {
	modelPath := writeFile(t, "model.arpa", model)

	var input strings.Builder
	for i := 0; i < 50; i++ {
		input.WriteString("a b\n")
	}
	input.WriteString("a b a\n")
	inputPath := writeFile(t, "input.txt", input.String())

	out, stderr, err := run(t, "", "query", modelPath, inputPath, "--workers", "4")
	require.NoError(t, err)

	require.Equal(t, 50, strings.Count(out, "log_10( Prob( a b ) ) = -1.5"))
	require.Contains(t, stderr, "[ERROR] query 51:")
	require.Contains(t, stderr, "[INFO] Loading: [====================] 100%")
	require.Contains(t, stderr, "[WARN] Failed: \t1")
}

func TestQueryCommandLogFile(t *testing.T) {
	modelPath := writeFile(t, "model.arpa", model)
	logPath := filepath.Join(t.TempDir(), "logs", "query.log")

	_, _, err := run(t, "a\n", "query", modelPath, "--log-file", logPath, "--log-level", "debug", "--no-progress")
	require.NoError(t, err)

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "model loaded")
}

func TestQueryCommandInvalidOptions(t *testing.T) {
	modelPath := writeFile(t, "model.arpa", model)

	tests := [][]string{
		{"query", modelPath, "--layout", "trie"},
		{"query", modelPath, "--growth", "random"},
		{"query", modelPath, "--workers", "0"},
		{"query", modelPath, "--words-per-bucket", "0"},
		{"query", modelPath, "--hashing-index"},
		{"query", modelPath, "--log-level", "loud"},
		{"query", filepath.Join(t.TempDir(), "missing.arpa")},
	}
	for _, args := range tests {
		_, _, err := run(t, "a\n", append(args, "--no-progress")...)
		require.Error(t, err, strings.Join(args, " "))
	}
}

func TestStatsCommand(t *testing.T) {
	modelPath := writeFile(t, "model.arpa", model)

	out, _, err := run(t, "", "stats", modelPath, "--layout", "g2dm", "--no-progress")
	require.NoError(t, err)

	require.Contains(t, out, "Layout:\tg2dm")
	require.Contains(t, out, "Level:\t2")
	require.Contains(t, out, "LEVEL  DECLARED  STORED")
	require.Contains(t, out, "CACHE LEVEL")
	require.Contains(t, out, "Heap in use:")
}

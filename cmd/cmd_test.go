package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/pretok/chunk"
	"github.com/ollama/pretok/pretokenize"
	"github.com/ollama/pretok/progress"
)

const testCorpus = "Hello world!<|endoftext|>This is a test. test test<|endoftext|>"

func writeCorpus(t *testing.T, s string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(s), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var b bytes.Buffer
	cmd := NewCLI()
	cmd.SetOut(&b)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return b.String(), err
}

func TestCount(t *testing.T) {
	path := writeCorpus(t, testCorpus)

	out, err := run(t, "count", path, "-w", "2", "-c", "2", "-n", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "10 pretokens, 8 unique, 2 chunks", lines[0])
	assert.Empty(t, lines[1])
	assert.Equal(t, []string{"RANK", "PRETOKEN", "COUNT"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"1", `"`, `test"`, "3"}, strings.Fields(lines[3]))
}

func TestCountOutput(t *testing.T) {
	path := writeCorpus(t, testCorpus)
	dir := t.TempDir()
	output := filepath.Join(dir, "counts.json")
	metricsFile := filepath.Join(dir, "metrics.prom")

	_, err := run(t, "count", path, "-n", "0", "-o", output, "--metrics", metricsFile)
	require.NoError(t, err)

	bts, err := os.ReadFile(output)
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal(bts, &got))

	want := map[string]int{
		"Hello": 1, " world": 1, "!": 1,
		"This": 1, " is": 1, " a": 1, " test": 3, ".": 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	bts, err = os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(bts), `pretok_scan_pretokens_total 10`)
	assert.Contains(t, string(bts), `pretok_scan_bytes_total 63`)
}

func TestCountSeparator(t *testing.T) {
	path := writeCorpus(t, "a b\n\nc d\n\n")

	out, err := run(t, "count", path, "--separator", `\n\n`, "-n", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "4 pretokens, 4 unique"), out)
}

func TestCountStrict(t *testing.T) {
	path := writeCorpus(t, "ok\xff")

	out, err := run(t, "count", path, "-n", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "1 pretokens, 1 unique"), out)

	_, err = run(t, "count", path, "--strict")
	assert.Error(t, err)
}

func TestCountErrors(t *testing.T) {
	_, err := run(t, "count")
	assert.Error(t, err)

	_, err = run(t, "count", filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), err)

	path := writeCorpus(t, testCorpus)
	_, err = run(t, "count", path, "-w", "-1")
	assert.ErrorIs(t, err, pretokenize.ErrInvalidInput)

	_, err = run(t, "count", path, "--separator", "")
	assert.ErrorIs(t, err, pretokenize.ErrInvalidInput)
}

func TestBoundaries(t *testing.T) {
	path := writeCorpus(t, testCorpus)

	out, err := run(t, "boundaries", path, "-c", "4")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"CHUNK", "START", "END", "SIZE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"0", "0", "50", "50", "B"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "50", "63", "13", "B"}, strings.Fields(lines[2]))
}

func TestEnv(t *testing.T) {
	t.Setenv("PRETOK_WINDOW", "128")

	out, err := run(t, "env")
	require.NoError(t, err)
	assert.Contains(t, out, "PRETOK_NUM_PARALLEL")

	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) > 1 && fields[0] == "PRETOK_WINDOW" {
			assert.Equal(t, "128", fields[1])
			return
		}
	}

	t.Fatal("PRETOK_WINDOW not listed")
}

func TestUnescape(t *testing.T) {
	cases := map[string]string{
		`<|endoftext|>`: "<|endoftext|>",
		`\n\n`:          "\n\n",
		`\x00`:          "\x00",
		`a"b`:           `a"b`,
		`\q`:            `\q`,
	}

	for input, want := range cases {
		if got := unescape(input); got != want {
			t.Errorf("unescape(%q) = %q, want %q", input, got, want)
		}
	}
}

type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (lb *lockedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.b.Write(p)
}

func (lb *lockedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.b.String()
}

func TestProgressTrace(t *testing.T) {
	cases := []struct {
		name   string
		n      int64
		err    error
		expect string
	}{
		{"read", 11, nil, "1/1"},
		{"empty read", 0, nil, "1/1"},
		{"skipped", 0, context.Canceled, "0/1 (1 failed)"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			var w lockedBuffer
			p := progress.NewProgress(&w)

			r := chunk.Range{Start: 0, End: 11}
			trace := progressTrace(p)
			trace.Boundaries(11, []chunk.Range{r})
			trace.Update(r, -1, nil)
			trace.Update(r, tt.n, tt.err)
			p.Stop()

			assert.Contains(t, w.String(), tt.expect)
		})
	}
}

package envconfig

import (
	"log/slog"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"t":     slog.LevelDebug,
		"1":     slog.LevelDebug,
		"2":     slog.Level(-8),
		"3":     slog.Level(-12),
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("PRETOK_DEBUG", k)
			if i := LogLevel(); i != v {
				t.Errorf("%s: expected %d, got %d", k, v, i)
			}
		})
	}
}

func TestSeparator(t *testing.T) {
	cases := map[string]string{
		"":              "<|endoftext|>",
		"<|endoftext|>": "<|endoftext|>",
		"</doc>":        "</doc>",
		"'</doc>'":      "</doc>",
		" \"</s>\" ":    "</s>",
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("PRETOK_SEPARATOR", k)
			if s := Separator(); s != v {
				t.Errorf("%s: expected %q, got %q", k, v, s)
			}
		})
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"true":  true,
		"false": false,
		"1":     true,
		"0":     false,
		// invalid values
		"random":    true,
		"something": true,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("PRETOK_BOOL", k)
			if b := Bool("PRETOK_BOOL")(); b != v {
				t.Errorf("%s: expected %t, got %t", k, v, b)
			}
		})
	}
}

func TestUint(t *testing.T) {
	cases := map[string]uint{
		"0":    4096,
		"1":    1,
		"8192": 8192,
		// invalid values
		"-1":  4096,
		"abc": 4096,
		"":    4096,
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("PRETOK_WINDOW", k)
			if i := Window(); i != v {
				t.Errorf("%s: expected %d, got %d", k, v, i)
			}
		})
	}
}

func TestNumParallel(t *testing.T) {
	t.Setenv("PRETOK_NUM_PARALLEL", "")
	if n := NumParallel(); n != uint(runtime.NumCPU()) {
		t.Errorf("expected %d, got %d", runtime.NumCPU(), n)
	}

	t.Setenv("PRETOK_NUM_PARALLEL", "3")
	if n := NumParallel(); n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
}

func TestValues(t *testing.T) {
	t.Setenv("PRETOK_DEBUG", "")
	t.Setenv("PRETOK_NUM_PARALLEL", "2")
	t.Setenv("PRETOK_NUM_CHUNKS", "")
	t.Setenv("PRETOK_SEPARATOR", "")
	t.Setenv("PRETOK_WINDOW", "")
	t.Setenv("PRETOK_STRICT_UTF8", "1")

	expect := map[string]string{
		"PRETOK_DEBUG":        "INFO",
		"PRETOK_NUM_PARALLEL": "2",
		"PRETOK_NUM_CHUNKS":   "0",
		"PRETOK_SEPARATOR":    "<|endoftext|>",
		"PRETOK_WINDOW":       "4096",
		"PRETOK_STRICT_UTF8":  "true",
	}

	if diff := cmp.Diff(expect, Values()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// LogLevel returns the log level for the application.
// Values are 0 or false INFO (Default), 1 or true DEBUG, 2 TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("PRETOK_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Separator returns the document separator used to align chunk boundaries.
// Configured via PRETOK_SEPARATOR. Default is "<|endoftext|>".
func Separator() string {
	if s := Var("PRETOK_SEPARATOR"); s != "" {
		return s
	}
	return "<|endoftext|>"
}

func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}

			return b
		}

		return defaultValue
	}
}

func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil || n == 0 {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}

		return defaultValue
	}
}

var (
	// NumParallel sets the number of chunks scanned at once.
	NumParallel = Uint("PRETOK_NUM_PARALLEL", uint(runtime.NumCPU()))
	// NumChunks sets the number of chunks a file is divided into. Zero means one per worker.
	NumChunks = Uint("PRETOK_NUM_CHUNKS", 0)
	// Window sets the look-ahead, in bytes, used when searching for a separator.
	Window = Uint("PRETOK_WINDOW", 4096)
	// StrictUTF8 rejects input with malformed UTF-8 instead of dropping it.
	StrictUTF8 = Bool("PRETOK_STRICT_UTF8")
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"PRETOK_DEBUG":        {"PRETOK_DEBUG", LogLevel(), "Show additional debug information (e.g. PRETOK_DEBUG=1)"},
		"PRETOK_NUM_PARALLEL": {"PRETOK_NUM_PARALLEL", NumParallel(), "Number of chunks scanned in parallel (default: number of CPUs)"},
		"PRETOK_NUM_CHUNKS":   {"PRETOK_NUM_CHUNKS", NumChunks(), "Number of chunks to divide a file into (default: one per worker)"},
		"PRETOK_SEPARATOR":    {"PRETOK_SEPARATOR", Separator(), "Document separator chunk boundaries are aligned to (default \"<|endoftext|>\")"},
		"PRETOK_WINDOW":       {"PRETOK_WINDOW", Window(), "Bytes read at a time while searching for a separator (default 4096)"},
		"PRETOK_STRICT_UTF8":  {"PRETOK_STRICT_UTF8", StrictUTF8(), "Fail on malformed UTF-8 instead of dropping it"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Var returns an environment variable stripped of leading and trailing quotes or spaces
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

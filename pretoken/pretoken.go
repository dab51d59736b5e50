// Package pretoken splits text into pretokens, the atomic strings that
// byte pair encoding merges are later learned over, and counts them.
package pretoken

import (
	"bytes"
	"iter"

	"github.com/dlclark/regexp2"
)

// Pattern is the GPT-2 pretokenizer. Alternatives are tried in order:
// contractions, letters, numbers and other symbols (each with an optional
// leading space), whitespace not followed by non-whitespace, whitespace.
const Pattern = `'(?:[sdmt]|ll|ve|re)| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// the trailing whitespace rule needs a negative lookahead, which rules out
// the standard library regexp package
var pattern = regexp2.MustCompile(Pattern, regexp2.None)

// Split yields the pretokens of s from left to right.
func Split(s string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for m, _ := pattern.FindRunesMatch([]rune(s)); m != nil; m, _ = pattern.FindNextMatch(m) {
			if !yield(m.String()) {
				return
			}
		}
	}
}

// Count decodes b with policy and counts its pretokens. If sep is not
// empty, b is first split into documents on sep and each document is
// segmented on its own; sep itself is never counted.
func Count(b, sep []byte, policy Policy) (Counts, error) {
	counts := make(Counts)

	docs := iter.Seq[[]byte](func(yield func([]byte) bool) { yield(b) })
	if len(sep) > 0 {
		docs = bytes.SplitSeq(b, sep)
	}

	for doc := range docs {
		s, err := Decode(doc, policy)
		if err != nil {
			return nil, err
		}

		for p := range Split(s) {
			counts[p]++
		}
	}

	return counts, nil
}

package pretoken

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Policy decides what happens to malformed UTF-8 in the input.
type Policy int

const (
	// Lossy drops malformed byte sequences.
	Lossy Policy = iota
	// Strict rejects input containing malformed byte sequences.
	Strict
)

func (p Policy) String() string {
	switch p {
	case Lossy:
		return "lossy"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

var ErrInvalidUTF8 = errors.New("invalid utf-8")

// Decode converts b to a string according to policy.
func Decode(b []byte, policy Policy) (string, error) {
	switch policy {
	case Strict:
		if _, n, err := transform.Bytes(encoding.UTF8Validator, b); err != nil {
			return "", fmt.Errorf("%w at byte %d", ErrInvalidUTF8, n)
		}
		return string(b), nil
	default:
		return strings.ToValidUTF8(string(b), ""), nil
	}
}

// Package chunk divides a file into byte ranges that can be pretokenized
// independently. Boundaries only ever fall on the start of a separator
// token or at the end of the file.
package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
)

// DefaultWindow is the number of bytes read at a time while searching
// forward for a separator.
const DefaultWindow = 4096

// DefaultSeparator marks the end of a document in the training corpus.
var DefaultSeparator = []byte("<|endoftext|>")

var ErrInvalidInput = errors.New("invalid input")

// Range is a half-open byte range [Start, End) of a file.
type Range struct {
	Start, End int64
}

func (r Range) Len() int64 {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

type options struct {
	window int
}

type Option func(*options)

// WithWindow sets the look-ahead window used when scanning for a separator.
func WithWindow(n int) Option {
	return func(o *options) {
		o.window = n
	}
}

// Boundaries returns sorted, unique byte offsets that split r into at most
// desired chunks. The first offset is 0 and the last is the size of r.
// Every offset in between is the start of an occurrence of sep or the size
// of r. Fewer chunks than desired are returned when guesses collapse onto
// the same separator.
func Boundaries(r io.ReadSeeker, desired int, sep []byte, opts ...Option) ([]int64, error) {
	o := options{window: DefaultWindow}
	for _, opt := range opts {
		opt(&o)
	}

	switch {
	case desired < 1:
		return nil, fmt.Errorf("%w: desired chunk count must be positive, got %d", ErrInvalidInput, desired)
	case len(sep) == 0:
		return nil, fmt.Errorf("%w: separator must not be empty", ErrInvalidInput)
	case o.window < 1:
		return nil, fmt.Errorf("%w: window must be positive, got %d", ErrInvalidInput, o.window)
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek end: %w", err)
	}

	chunkSize := size / int64(desired)
	if chunkSize == 0 {
		// every interior guess is 0, so one snap gives the same result
		desired = min(desired, 2)
	}

	boundaries := make([]int64, desired+1)
	for i := range boundaries {
		boundaries[i] = int64(i) * chunkSize
	}
	boundaries[desired] = size

	// window plus room for a separator split across two reads
	buf := make([]byte, len(sep)-1+o.window)
	for i := 1; i < desired; i++ {
		b, err := snap(r, boundaries[i], size, sep, buf)
		if err != nil {
			return nil, err
		}
		boundaries[i] = b
	}

	slices.Sort(boundaries)
	return slices.Compact(boundaries), nil
}

// snap scans forward from offset and returns the start of the next
// separator, or size if there is none.
func snap(r io.ReadSeeker, offset, size int64, sep, buf []byte) (int64, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek %d: %w", offset, err)
	}

	window := buf[len(sep)-1:]

	// carry holds the tail of the previous window; pos is the file offset
	// of buf[len(sep)-1-carry]
	var carry int
	pos := offset
	for {
		n, err := io.ReadFull(r, window)
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return size, nil
			}
			return 0, fmt.Errorf("read at %d: %w", pos, err)
		}

		head := len(sep) - 1 - carry
		if i := bytes.Index(buf[head:len(sep)-1+n], sep); i >= 0 {
			return pos - int64(carry) + int64(i), nil
		}

		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("read at %d: %w", pos, err)
		}

		pos += int64(n)
		carry = min(len(sep)-1, carry+n)
		copy(buf[len(sep)-1-carry:len(sep)-1], buf[len(sep)-1+n-carry:len(sep)-1+n])
	}
}

// Ranges pairs adjacent boundaries into the ranges they delimit.
func Ranges(boundaries []int64) []Range {
	if len(boundaries) < 2 {
		return nil
	}

	ranges := make([]Range, 0, len(boundaries)-1)
	for i := range len(boundaries) - 1 {
		ranges = append(ranges, Range{Start: boundaries[i], End: boundaries[i+1]})
	}
	return ranges
}

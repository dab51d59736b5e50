// Package pretokenize counts the pretokens of a file in parallel. The file
// is divided into chunks aligned to a document separator, each chunk is
// scanned by its own task, and one frequency table is returned per chunk.
package pretokenize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ollama/pretok/chunk"
	"github.com/ollama/pretok/envconfig"
	"github.com/ollama/pretok/format"
	"github.com/ollama/pretok/logutil"
	"github.com/ollama/pretok/metrics"
	"github.com/ollama/pretok/pretoken"
)

var ErrInvalidInput = chunk.ErrInvalidInput

// Options configures [Pretokenize]. Zero values are replaced with the
// defaults from envconfig.
type Options struct {
	// Workers is the number of chunks scanned at once.
	Workers int

	// Chunks is the number of chunks to aim for. Fewer are used when the
	// separator is too sparse. Zero means one per worker.
	Chunks int

	// Separator marks the end of a document. Chunk boundaries only fall on
	// a separator and it is never counted. A nil Separator uses the
	// default; an empty, non-nil one is invalid.
	Separator []byte

	// Window is the look-ahead in bytes used to find separators.
	Window int

	// Policy is the decoding policy. Lossy is replaced with Strict when
	// PRETOK_STRICT_UTF8 is set.
	Policy pretoken.Policy

	// Metrics, if set, records every chunk scan.
	Metrics *metrics.Scan
}

func (o Options) withDefaults() (Options, error) {
	if o.Workers == 0 {
		o.Workers = int(envconfig.NumParallel())
	}

	if o.Chunks == 0 {
		o.Chunks = int(envconfig.NumChunks())
	}

	if o.Chunks == 0 {
		o.Chunks = o.Workers
	}

	if o.Separator == nil {
		o.Separator = []byte(envconfig.Separator())
	}

	if o.Window == 0 {
		o.Window = int(envconfig.Window())
	}

	if o.Policy == pretoken.Lossy && envconfig.StrictUTF8() {
		o.Policy = pretoken.Strict
	}

	switch {
	case o.Workers < 1:
		return o, fmt.Errorf("%w: worker count must be positive, got %d", ErrInvalidInput, o.Workers)
	case o.Chunks < 1:
		return o, fmt.Errorf("%w: chunk count must be positive, got %d", ErrInvalidInput, o.Chunks)
	case len(o.Separator) == 0:
		return o, fmt.Errorf("%w: separator must not be empty", ErrInvalidInput)
	case o.Window < 1:
		return o, fmt.Errorf("%w: window must be positive, got %d", ErrInvalidInput, o.Window)
	}

	return o, nil
}

// Boundaries returns the chunk boundaries of the file at path.
func Boundaries(path string, opts Options) ([]int64, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	return boundaries(path, opts)
}

func boundaries(path string, opts Options) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := chunk.Boundaries(f, opts.Chunks, opts.Separator, chunk.WithWindow(opts.Window))
	if err != nil {
		return nil, fmt.Errorf("chunk boundaries: %w", err)
	}

	return b, nil
}

// Pretokenize divides the file at path into chunks and returns one
// frequency table per chunk, in no particular order. Tables are scanned
// concurrently by opts.Workers tasks. If any chunk fails, Pretokenize
// returns the first error and no tables.
//
// Merging the returned tables gives the same counts for any worker count.
func Pretokenize(ctx context.Context, path string, opts Options) ([]pretoken.Counts, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	b, err := boundaries(path, opts)
	if err != nil {
		return nil, err
	}

	size := b[len(b)-1]
	ranges := chunk.Ranges(b)

	t := traceFromContext(ctx)
	t.boundaries(size, ranges)

	slog.Debug("pretokenize", "path", path, "size", format.HumanBytes(size),
		"chunks", len(ranges), "requested", opts.Chunks, "workers", opts.Workers)

	// every task sends at most one table, so sends never block
	results := make(chan pretoken.Counts, len(ranges))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, r := range ranges {
		g.Go(func() error {
			counts, err := scanChunk(ctx, path, r, opts)
			if err != nil {
				return err
			}

			results <- counts
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	tables := make([]pretoken.Counts, 0, len(ranges))
	for counts := range results {
		tables = append(tables, counts)
	}

	if len(tables) != len(ranges) {
		return nil, fmt.Errorf("collected %d tables for %d chunks", len(tables), len(ranges))
	}

	return tables, nil
}

// ScanChunk counts the pretokens in r of the file at path. It opens its own
// handle to the file so it can run alongside other scans.
func ScanChunk(ctx context.Context, path string, r chunk.Range, opts Options) (pretoken.Counts, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	return scanChunk(ctx, path, r, opts)
}

func scanChunk(ctx context.Context, path string, r chunk.Range, opts Options) (counts pretoken.Counts, err error) {
	t := traceFromContext(ctx)
	t.update(r, -1, nil)

	var n int
	start := time.Now()
	defer func() {
		t.update(r, int64(n), err)
		opts.Metrics.Observe(int64(n), counts.Total(), time.Since(start), err)
	}()

	// a sibling task already failed
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.Start < 0 || r.End < r.Start {
		return nil, fmt.Errorf("%w: range %s", ErrInvalidInput, r)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", r, err)
	}
	defer f.Close()

	buf := make([]byte, r.Len())
	n, err = io.ReadFull(io.NewSectionReader(f, r.Start, r.Len()), buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		slog.Debug("short read", "range", r, "want", r.Len(), "got", n)
	case err != nil:
		return nil, fmt.Errorf("scan %s: %w", r, err)
	}

	counts, err = pretoken.Count(buf[:n], opts.Separator, opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", r, err)
	}

	logutil.Trace("scanned chunk", "range", r, "bytes", n, "pretokens", len(counts), "elapsed", time.Since(start))
	return counts, nil
}

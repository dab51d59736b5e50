package pretokenize

import (
	"context"

	"github.com/ollama/pretok/chunk"
)

// Trace is a set of functions that are called to report progress while a
// file is pretokenized.
//
// Use [WithTrace] to attach a Trace to a context for use with [Pretokenize].
type Trace struct {
	// Boundaries is called once the chunk ranges are known, before any
	// chunk is scanned.
	Boundaries func(size int64, ranges []chunk.Range)

	// Update is called when a chunk scan starts, with n == -1 and a nil
	// err, and again when it ends. On success n is the number of bytes
	// read, which is less than r.Len() only for a short read and may be
	// zero. Otherwise err is the reason the scan failed or was skipped.
	//
	// A function assigned must be safe for concurrent use. The function is
	// called synchronously and so should not block or take long to run.
	Update func(r chunk.Range, n int64, err error)
}

func (t *Trace) boundaries(size int64, ranges []chunk.Range) {
	if t.Boundaries != nil {
		t.Boundaries(size, ranges)
	}
}

func (t *Trace) update(r chunk.Range, n int64, err error) {
	if t.Update != nil {
		t.Update(r, n, err)
	}
}

type traceKey struct{}

// WithTrace returns a context derived from ctx that uses t to report trace
// events.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

var emptyTrace = &Trace{}

// traceFromContext returns the Trace associated with ctx, or an empty Trace if
// none is found.
//
// It never returns nil.
func traceFromContext(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	if t == nil {
		return emptyTrace
	}
	return t
}

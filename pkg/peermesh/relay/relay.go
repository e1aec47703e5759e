// Package relay pumps bytes between a mesh transport stream and a
// local endpoint.
//
// A mesh connection surfaces as a pair of streams; bridging it to a
// local socket needs two pumps, one per direction. Pump runs one
// direction to completion; Pair runs both and reports each side's
// outcome. The relay never owns the endpoints: closing them, including
// to unblock a pump stuck in a read, is the caller's job.
package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/husseinmarah/peermesh/pkg/peermesh/observability"
)

const (
	// DefaultBufferSize is the copy buffer size used when none is
	// configured.
	DefaultBufferSize = 4 * 1024

	// MaxBufferSize caps configurable copy buffers.
	MaxBufferSize = 8 * 1024
)

// ErrBufferSize indicates WithBufferSize was given a size outside
// (0, MaxBufferSize].
var ErrBufferSize = errors.New("relay: buffer size out of range")

// Result reports one finished pump.
type Result struct {
	// Bytes is the total number of bytes copied.
	Bytes int64

	// Err is nil when the source reached EOF or the context was
	// canceled between chunks; otherwise the read or write error.
	Err error
}

// Progress is called after each successfully copied chunk with its
// size. It runs on the pump's goroutine; keep it cheap.
type Progress func(n int)

type pumpConfig struct {
	name     string
	bufSize  int
	progress Progress
	log      *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
}

// Option configures a pump.
type Option func(*pumpConfig) error

// WithName names the pump in logs and trace spans (e.g. "inbound").
func WithName(name string) Option {
	return func(c *pumpConfig) error {
		c.name = name
		return nil
	}
}

// WithBufferSize sets the copy buffer size in bytes.
// Returns ErrBufferSize for sizes outside (0, MaxBufferSize].
func WithBufferSize(n int) Option {
	return func(c *pumpConfig) error {
		if n <= 0 || n > MaxBufferSize {
			return ErrBufferSize
		}
		c.bufSize = n
		return nil
	}
}

// WithProgress enables per-chunk progress callbacks. Disabled by
// default; the callback runs on the hot path.
func WithProgress(fn Progress) Option {
	return func(c *pumpConfig) error {
		c.progress = fn
		return nil
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *pumpConfig) error {
		c.log = logger
		return nil
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(recorder observability.MetricsRecorder) Option {
	return func(c *pumpConfig) error {
		if recorder != nil {
			c.metrics = recorder
		}
		return nil
	}
}

// WithSpans attaches a span manager; the pump's lifetime becomes one
// trace span.
func WithSpans(spans observability.SpanManager) Option {
	return func(c *pumpConfig) error {
		if spans != nil {
			c.spans = spans
		}
		return nil
	}
}

func newConfig(opts []Option) (pumpConfig, error) {
	c := pumpConfig{
		name:    "pump",
		bufSize: DefaultBufferSize,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return pumpConfig{}, err
		}
	}
	return c, nil
}

// Pump copies src to dst until EOF, a read/write error, or context
// cancellation. Cancellation is observed between chunks: a pump
// blocked in a read stays blocked until the caller closes the
// endpoint, exactly as with io.Copy.
func Pump(ctx context.Context, dst io.Writer, src io.Reader, opts ...Option) Result {
	c, err := newConfig(opts)
	if err != nil {
		return Result{Err: err}
	}
	return c.run(ctx, dst, src)
}

func (c pumpConfig) run(ctx context.Context, dst io.Writer, src io.Reader) Result {
	ctx, span := c.spans.StartRelaySpan(ctx, c.name)
	start := time.Now()

	buf := make([]byte, c.bufSize)
	var total int64
	var result error

	for {
		if err := ctx.Err(); err != nil {
			break
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			total += int64(wn)
			if werr == nil && wn < n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				result = werr
				break
			}
			if c.progress != nil {
				c.progress(n)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			result = rerr
			break
		}
	}

	c.metrics.RecordRelay(ctx, total, time.Since(start), result)
	observability.LogRelayDone(c.log, c.name, total, result)
	c.spans.EndSpanWithError(span, result)
	return Result{Bytes: total, Err: result}
}

// Pair bridges two endpoints: everything read from a is written to b
// and vice versa. It blocks until both directions finish and returns
// their results as (a-to-b, b-to-a).
//
// One direction ending does not unblock the other; callers that want
// half-close-is-close semantics should close both endpoints when Pair
// returns or when the context is canceled.
func Pair(ctx context.Context, a, b io.ReadWriter, opts ...Option) (Result, Result) {
	base, err := newConfig(opts)
	if err != nil {
		return Result{Err: err}, Result{Err: err}
	}

	forward := base
	forward.name = base.name + ".forward"
	backward := base
	backward.name = base.name + ".backward"

	done := make(chan Result, 1)
	go func() {
		done <- forward.run(ctx, b, a)
	}()
	back := backward.run(ctx, a, b)
	fwd := <-done
	return fwd, back
}

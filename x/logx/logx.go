// Package logx is the logging sink: tagged slog loggers over a tint handler,
// fed through a bounded queue so callers never block on output.
package logx

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
)

// TagKey is the attribute carrying the subsystem tag.
const TagKey = "tag"

// Subsystem tags.
const (
	TagMain  = "MAIN"
	TagBoot  = "BOOT"
	TagWiFi  = "WIFI"
	TagI2C   = "I2C"
	TagQMC   = "QMC"
	TagCalc  = "CALC"
	TagGPS   = "GPS"
	TagHB    = "HB"
	TagStore = "NVS"
)

// Tag derives a logger whose records carry the given subsystem tag. A nil
// logger yields a discarding one.
func Tag(l *slog.Logger, tag string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With(TagKey, tag)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger { return slog.New(discardHandler{}) }

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Options configures New.
type Options struct {
	Level   slog.Leveler
	NoColor bool
	// Depth bounds the number of queued records; 0 selects 64.
	Depth int
}

// New builds a tint-formatted logger behind a non-blocking Sink. Close the
// returned Sink to flush on shutdown.
func New(w io.Writer, opts Options) (*slog.Logger, *Sink) {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	h := tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: time.TimeOnly,
		NoColor:    opts.NoColor,
	})
	s := NewSink(h, opts.Depth)
	return slog.New(s.Handler()), s
}

// -----------------------------------------------------------------------------
// Sink
// -----------------------------------------------------------------------------

type entry struct {
	h slog.Handler
	r slog.Record
}

// Sink serialises records from any goroutine onto one writer goroutine.
// Handle never blocks: when the queue is full the record is dropped and
// counted.
type Sink struct {
	inner   slog.Handler
	q       chan entry
	dropped atomic.Uint64
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

func NewSink(inner slog.Handler, depth int) *Sink {
	if depth <= 0 {
		depth = 64
	}
	s := &Sink{
		inner: inner,
		q:     make(chan entry, depth),
		done:  make(chan struct{}),
	}
	go s.drain()
	return s
}

// Handler returns the slog.Handler front of the sink.
func (s *Sink) Handler() slog.Handler {
	return &asyncHandler{s: s, inner: s.inner}
}

func (s *Sink) drain() {
	defer close(s.done)
	for e := range s.q {
		_ = e.h.Handle(context.Background(), e.r)
	}
}

// Dropped reports the number of records discarded under pressure.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

// Close stops accepting records, writes what is queued, and returns.
func (s *Sink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.q)
		s.mu.Unlock()
	})
	<-s.done
}

func (s *Sink) enqueue(h slog.Handler, r slog.Record) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.q <- entry{h: h, r: r}:
	default:
		s.dropped.Add(1)
	}
}

type asyncHandler struct {
	s     *Sink
	inner slog.Handler
}

func (a *asyncHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return a.inner.Enabled(ctx, l)
}

func (a *asyncHandler) Handle(_ context.Context, r slog.Record) error {
	a.s.enqueue(a.inner, r.Clone())
	return nil
}

func (a *asyncHandler) WithAttrs(as []slog.Attr) slog.Handler {
	return &asyncHandler{s: a.s, inner: a.inner.WithAttrs(as)}
}

func (a *asyncHandler) WithGroup(name string) slog.Handler {
	return &asyncHandler{s: a.s, inner: a.inner.WithGroup(name)}
}

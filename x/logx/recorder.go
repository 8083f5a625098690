package logx

import (
	"context"
	"log/slog"
	"sync"
)

// Record is a flattened log record kept by Recorder.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Tag returns the subsystem tag of the record, if any.
func (r Record) Tag() string {
	s, _ := r.Attrs[TagKey].(string)
	return s
}

// Recorder is a synchronous in-memory handler for tests and diagnostics.
type Recorder struct {
	mu    sync.Mutex
	recs  []Record
	attrs []slog.Attr
	root  *Recorder
}

func NewRecorder() *Recorder { return &Recorder{} }

// Logger returns a logger writing into r.
func (r *Recorder) Logger() *slog.Logger { return slog.New(r) }

func (r *Recorder) store() *Recorder {
	if r.root != nil {
		return r.root
	}
	return r
}

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	m := make(map[string]any, len(r.attrs)+rec.NumAttrs())
	for _, a := range r.attrs {
		m[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	st := r.store()
	st.mu.Lock()
	st.recs = append(st.recs, Record{Level: rec.Level, Message: rec.Message, Attrs: m})
	st.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs(as []slog.Attr) slog.Handler {
	n := &Recorder{root: r.store()}
	n.attrs = append(append(n.attrs, r.attrs...), as...)
	return n
}

// WithGroup is flattened; groups are not used by this firmware.
func (r *Recorder) WithGroup(string) slog.Handler { return r }

// Records returns a snapshot of everything recorded so far.
func (r *Recorder) Records() []Record {
	st := r.store()
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]Record(nil), st.recs...)
}

// Filter returns records matching level (or any level when lvl is nil) and
// message (or any message when msg is empty).
func (r *Recorder) Filter(lvl *slog.Level, msg string) []Record {
	var out []Record
	for _, rec := range r.Records() {
		if lvl != nil && rec.Level != *lvl {
			continue
		}
		if msg != "" && rec.Message != msg {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Count returns the number of records at the given level.
func (r *Recorder) Count(lvl slog.Level) int {
	return len(r.Filter(&lvl, ""))
}

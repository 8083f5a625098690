package logx

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewWritesTaggedRecord(t *testing.T) {
	var buf syncBuffer
	log, sink := New(&buf, Options{NoColor: true})
	Tag(log, TagWiFi).Info("connected", "addr", "192.168.1.20")
	sink.Close()

	out := buf.String()
	for _, want := range []string{"connected", "tag=WIFI", "addr=192.168.1.20"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

// blockingHandler stalls until released, simulating a slow sink.
type blockingHandler struct {
	release chan struct{}
	n       int
	mu      sync.Mutex
}

func (b *blockingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (b *blockingHandler) Handle(context.Context, slog.Record) error {
	<-b.release
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
	return nil
}
func (b *blockingHandler) WithAttrs([]slog.Attr) slog.Handler { return b }
func (b *blockingHandler) WithGroup(string) slog.Handler      { return b }

func TestSinkNeverBlocks(t *testing.T) {
	bh := &blockingHandler{release: make(chan struct{})}
	s := NewSink(bh, 2)
	log := slog.New(s.Handler())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			log.Info("tick")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("logging blocked on a stalled sink")
	}
	if s.Dropped() == 0 {
		t.Fatal("expected drops under pressure")
	}
	close(bh.release)
	s.Close()
}

func TestSinkCloseIdempotentAndDropsAfter(t *testing.T) {
	r := NewRecorder()
	s := NewSink(r, 4)
	log := slog.New(s.Handler())
	log.Info("before")
	s.Close()
	s.Close()
	log.Info("after")

	if n := len(r.Filter(nil, "before")); n != 1 {
		t.Fatalf("before records = %d", n)
	}
	if n := len(r.Filter(nil, "after")); n != 0 {
		t.Fatalf("after records = %d", n)
	}
	if s.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", s.Dropped())
	}
}

func TestRecorderKeepsTag(t *testing.T) {
	r := NewRecorder()
	Tag(r.Logger(), TagCalc).Warn("skip", "stage", "mag")
	recs := r.Records()
	if len(recs) != 1 || recs[0].Tag() != TagCalc || recs[0].Attrs["stage"] != "mag" {
		t.Fatalf("records = %+v", recs)
	}
	if r.Count(slog.LevelWarn) != 1 {
		t.Fatal("Count mismatch")
	}
}

func TestTagNilLogger(t *testing.T) {
	Tag(nil, TagMain).Error("dropped silently")
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

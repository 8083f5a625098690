package gps

import (
	"context"
	"sync"
	"testing"
	"time"

	"satpoint-go/bus"
	"satpoint-go/types"
)

// chunkPort feeds pre-split chunks, then blocks until the context ends.
type chunkPort struct {
	mu     sync.Mutex
	chunks []string
}

func (p *chunkPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	p.mu.Lock()
	if len(p.chunks) > 0 {
		n := copy(buf, p.chunks[0])
		if n < len(p.chunks[0]) {
			p.chunks[0] = p.chunks[0][n:]
		} else {
			p.chunks = p.chunks[1:]
		}
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestFixPublishedRetained(t *testing.T) {
	port := &chunkPort{chunks: []string{
		"garbage\r\n$GPGGA,123519,4807.038,N,011",
		"31.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n",
		"$GPGSV,3,1,11*00\r\n",
	}}
	b := bus.NewBus(4)
	conn := b.NewConnection("gps")
	sub := conn.Subscribe(topicFix)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	svc := New(port, conn, nil)
	go func() { done <- svc.Run(ctx) }()

	select {
	case m := <-sub.Channel():
		fix, ok := m.Payload.(types.GeoFix)
		if !ok || !m.Retained {
			t.Fatalf("message = %#v", m)
		}
		if fix.Sats != 8 || fix.AltM != 545.4 || fix.Lat < 48.11 || fix.Lat > 48.12 {
			t.Fatalf("fix = %+v", fix)
		}
	case <-time.After(time.Second):
		t.Fatal("no fix published")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	if _, ok := b.Retained(topicFix); !ok {
		t.Fatal("fix not retained")
	}
}

func TestNoFixNotPublished(t *testing.T) {
	port := &chunkPort{chunks: []string{"$GPGGA,123519,,,,,0,00,,,M,,M,,*6B\n"}}
	b := bus.NewBus(4)
	conn := b.NewConnection("gps")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = New(port, conn, nil).Run(ctx)

	if _, ok := b.Retained(topicFix); ok {
		t.Fatal("published a fix without one")
	}
}

func TestOverlongLineDropped(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'A'
	}
	port := &chunkPort{chunks: []string{string(long) + "\n"}}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	svc := New(port, nil, nil)
	_ = svc.Run(ctx)
	if svc.Fix() != (types.GeoFix{}) {
		t.Fatalf("fix = %+v", svc.Fix())
	}
}

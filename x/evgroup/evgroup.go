// Package evgroup provides a small set of boolean conditions that can be set
// and cleared from any goroutine and awaited by any number of waiters.
//
//	g := evgroup.New()
//	g.Set(Connected)                          // from a driver callback
//	bits, err := g.Wait(ctx, Connected, true) // from a task
//
// Waiting never consumes bits; callers clear explicitly.
package evgroup

import (
	"context"
	"sync"
	"time"
)

// Bits is a set of up to 32 conditions.
type Bits uint32

type Group struct {
	mu   sync.Mutex
	bits Bits
	// changed is closed and replaced on every mutation that alters bits.
	changed chan struct{}
}

func New() *Group {
	return &Group{changed: make(chan struct{})}
}

// Set raises bits and wakes waiters. Returns the resulting value.
func (g *Group) Set(b Bits) Bits {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bits|b != g.bits {
		g.bits |= b
		g.notifyLocked()
	}
	return g.bits
}

// Clear lowers bits and wakes waiters. Returns the resulting value.
func (g *Group) Clear(b Bits) Bits {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bits&b != 0 {
		g.bits &^= b
		g.notifyLocked()
	}
	return g.bits
}

// Get returns the current bits.
func (g *Group) Get() Bits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bits
}

// Changed returns a channel closed on the next mutation.
func (g *Group) Changed() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.changed
}

func (g *Group) notifyLocked() {
	close(g.changed)
	g.changed = make(chan struct{})
}

func satisfied(have, want Bits, all bool) bool {
	if all {
		return have&want == want
	}
	return have&want != 0
}

// Wait blocks until all (or any, when all is false) of want are set, or ctx
// ends. It returns the bits observed at wake-up; on ctx expiry the error is
// ctx.Err() and the bits are the current value.
func (g *Group) Wait(ctx context.Context, want Bits, all bool) (Bits, error) {
	for {
		g.mu.Lock()
		have, ch := g.bits, g.changed
		g.mu.Unlock()
		if satisfied(have, want, all) {
			return have, nil
		}
		select {
		case <-ctx.Done():
			return g.Get(), ctx.Err()
		case <-ch:
		}
	}
}

// WaitTimeout is Wait bounded by d. A negative d waits forever.
func (g *Group) WaitTimeout(want Bits, all bool, d time.Duration) (Bits, error) {
	if d < 0 {
		return g.Wait(context.Background(), want, all)
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return g.Wait(ctx, want, all)
}

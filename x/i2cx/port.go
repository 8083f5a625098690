// Package i2cx hands out exclusive ownership of a configured I2C bus.
package i2cx

import (
	"sync"

	"satpoint-go/errcode"

	"tinygo.org/x/drivers"
)

// Port wraps one physical bus. At most one owner holds it at a time; the
// handle returned by Claim refuses transactions once released.
type Port struct {
	id  string
	hw  drivers.I2C
	mu  sync.Mutex
	own string
	gen uint32
}

func NewPort(id string, hw drivers.I2C) *Port {
	return &Port{id: id, hw: hw}
}

func (p *Port) ID() string { return p.id }

// Owner returns the current owner, or "" when free.
func (p *Port) Owner() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.own
}

// Claim grants exclusive use of the bus to owner. Re-claiming by the same
// owner returns a fresh handle.
func (p *Port) Claim(owner string) (drivers.I2C, error) {
	if p == nil || p.hw == nil {
		return nil, errcode.UnknownBus
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.own != "" && p.own != owner {
		return nil, &errcode.E{C: errcode.BusInUse, Op: "i2cx.Claim", Msg: p.id + " held by " + p.own}
	}
	p.own = owner
	p.gen++
	return &handle{p: p, gen: p.gen}, nil
}

// Release frees the bus if owner holds it.
func (p *Port) Release(owner string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.own == owner {
		p.own = ""
		p.gen++
	}
}

type handle struct {
	p   *Port
	gen uint32
}

func (h *handle) Tx(addr uint16, w, r []byte) error {
	h.p.mu.Lock()
	ok := h.p.gen == h.gen && h.p.own != ""
	h.p.mu.Unlock()
	if !ok {
		return errcode.BusInUse
	}
	return h.p.hw.Tx(addr, w, r)
}

package i2cx

import (
	"testing"

	"satpoint-go/errcode"
)

type nopI2C struct{ n int }

func (b *nopI2C) Tx(addr uint16, w, r []byte) error { b.n++; return nil }

func TestClaimExclusive(t *testing.T) {
	hw := &nopI2C{}
	p := NewPort("i2c0", hw)

	h, err := p.Claim("pointing")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := p.Claim("other"); errcode.Of(err) != errcode.BusInUse {
		t.Fatalf("second owner err = %v, want bus_in_use", err)
	}
	if err := h.Tx(0x68, []byte{0x75}, make([]byte, 1)); err != nil || hw.n != 1 {
		t.Fatalf("Tx = %v (n=%d)", err, hw.n)
	}
	if p.Owner() != "pointing" {
		t.Fatalf("Owner = %q", p.Owner())
	}
}

func TestReleaseInvalidatesHandle(t *testing.T) {
	hw := &nopI2C{}
	p := NewPort("i2c0", hw)
	h, _ := p.Claim("pointing")
	p.Release("pointing")

	if err := h.Tx(0x0D, nil, make([]byte, 1)); err == nil {
		t.Fatal("stale handle still usable")
	}
	if hw.n != 0 {
		t.Fatal("stale handle reached hardware")
	}
	if _, err := p.Claim("other"); err != nil {
		t.Fatalf("claim after release: %v", err)
	}
}

func TestClaimUnconfigured(t *testing.T) {
	var p *Port
	if _, err := p.Claim("x"); errcode.Of(err) != errcode.UnknownBus {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewPort("i2c1", nil).Claim("x"); errcode.Of(err) != errcode.UnknownBus {
		t.Fatalf("err = %v", err)
	}
}

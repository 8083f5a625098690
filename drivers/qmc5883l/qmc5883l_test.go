package qmc5883l

import (
	"errors"
	"testing"

	"satpoint-go/platform/sim"
	"satpoint-go/types"
)

func TestNotReadyBeforeConfigure(t *testing.T) {
	d := New(sim.NewI2C())
	if _, err := d.ReadMagnetometer(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
}

func TestConfigureDefaults(t *testing.T) {
	bus := sim.NewI2C()
	d := New(bus)
	if err := d.Configure(Config{}); err != nil {
		t.Fatal(err)
	}
	if got := bus.Reg(Address, regControl1); got != ModeContinuous|ODR200Hz|Range8G {
		t.Fatalf("CONTROL1 = %#x", got)
	}
	if got := bus.Reg(Address, regSetReset); got != 0x01 {
		t.Fatalf("SET/RESET = %#x", got)
	}

	bus.SetRaw(types.Vec3{}, types.Vec3{}, types.Vec3{X: 750, Y: -12, Z: 1299})
	s, err := d.ReadMagnetometer()
	if err != nil {
		t.Fatal(err)
	}
	if s != (Sample{750, -12, 1299}) {
		t.Fatalf("sample = %+v", s)
	}
}

func TestOverflow(t *testing.T) {
	bus := sim.NewI2C()
	d := New(bus)
	if err := d.Configure(Config{}); err != nil {
		t.Fatal(err)
	}
	bus.Overflow(true)
	if _, err := d.ReadMagnetometer(); !errors.Is(err, ErrOverflow) {
		t.Fatalf("err = %v, want ErrOverflow", err)
	}
}

func TestChipID(t *testing.T) {
	bus := sim.NewI2C()
	_ = bus.Tx(Address, []byte{regChipID, 0x00}, nil)
	if err := New(bus).Configure(Config{}); !errors.Is(err, ErrChipID) {
		t.Fatalf("err = %v", err)
	}
}

//go:build !rp2040 && !rp2350

package platform

import (
	"path/filepath"
	"testing"

	"satpoint-go/platform/sim"
	"satpoint-go/services/config"
	"satpoint-go/services/nvs"
)

func TestOpenHost(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "satpoint.db")

	b, err := Open(cfg, HostOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Station.(*sim.Station); !ok {
		t.Fatalf("station = %T", b.Station)
	}
	if _, ok := b.Store.(*nvs.Bolt); !ok {
		t.Fatalf("store = %T", b.Store)
	}
	if b.I2C == nil || b.I2C.ID() != "i2c0" {
		t.Fatal("sensor bus missing")
	}
	if b.GPS != nil {
		t.Fatal("gps present without a device")
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenHostMemStore(t *testing.T) {
	b, err := Open(config.Defaults(), HostOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if _, ok := b.Store.(*nvs.Mem); !ok {
		t.Fatalf("store = %T", b.Store)
	}
}

func TestOpenHostBadGPSDevice(t *testing.T) {
	if _, err := Open(config.Defaults(), HostOptions{GPSDevice: filepath.Join(t.TempDir(), "no-tty")}); err == nil {
		t.Fatal("expected error for missing serial device")
	}
}

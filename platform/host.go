//go:build !rp2040 && !rp2350

package platform

import (
	"log/slog"
	"net/netip"

	"satpoint-go/platform/sim"
	"satpoint-go/services/gps"
	"satpoint-go/services/nvs"
	"satpoint-go/types"
	"satpoint-go/x/i2cx"
)

// HostOptions selects real host devices in place of simulated ones.
type HostOptions struct {
	// GPSDevice is a serial device path; empty leaves GPS absent.
	GPSDevice string
	// Addr is handed out by the simulated access point.
	Addr netip.Addr
	// Logger receives store records; nil discards them.
	Logger *slog.Logger
}

// Open builds a host board: simulated sensor bus and station, a bbolt store
// when cfg.Storage.Path is set, and an optional serial GPS.
func Open(cfg types.Config, o HostOptions) (*Board, error) {
	if !o.Addr.IsValid() {
		o.Addr = netip.MustParseAddr("192.168.4.2")
	}
	b := &Board{}

	hw := sim.NewI2C()
	b.I2C = i2cx.NewPort(cfg.Sensor.Bus, hw)

	st := sim.NewStation(o.Addr)
	b.Station = st
	b.onClose(func() error { st.Close(); return nil })

	if cfg.Storage.Path != "" {
		b.Store = nvs.NewBolt(cfg.Storage.Path, o.Logger)
	} else {
		b.Store = nvs.NewMem()
	}

	if o.GPSDevice != "" {
		p, err := gps.OpenSerial(o.GPSDevice, cfg.GPS.Baud)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.GPS = p
		b.onClose(p.Close)
	}
	return b, nil
}

//go:build rp2040 || rp2350

package platform

import (
	"machine"
	"net/netip"

	"satpoint-go/services/nvs"
	"satpoint-go/services/wifi"
	"satpoint-go/types"
	"satpoint-go/x/i2cx"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/netlink/probe"
)

// HostOptions has no effect on rp2 boards.
type HostOptions struct{}

// Open configures I2C0 (GP4/GP5, 400 kHz) for the sensors, UART1 (GP8/GP9)
// for GPS when enabled, and the on-board radio through netlink. Station
// credentials are kept in RAM.
func Open(cfg types.Config, _ HostOptions) (*Board, error) {
	b := &Board{}

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		SDA:       machine.GPIO4,
		SCL:       machine.GPIO5,
		Frequency: 400 * machine.KHz,
	}); err != nil {
		return nil, err
	}
	b.I2C = i2cx.NewPort(cfg.Sensor.Bus, i2c)

	if cfg.GPS.Enabled {
		u := uartx.UART1
		if err := u.Configure(uartx.UARTConfig{
			BaudRate: uint32(cfg.GPS.Baud),
			TX:       machine.GPIO8,
			RX:       machine.GPIO9,
		}); err != nil {
			return nil, err
		}
		b.GPS = u
	}

	link, dev := probe.Probe()
	b.Station = wifi.NewNetlinkStation(link, func() (netip.Addr, error) {
		return dev.Addr()
	})
	b.Store = nvs.NewMem()
	return b, nil
}

// Package platform assembles the peripherals of the board the firmware is
// built for. The rp2 build uses real hardware; any other build gets the
// simulated peripherals from platform/sim.
package platform

import (
	"errors"

	"satpoint-go/services/gps"
	"satpoint-go/services/nvs"
	"satpoint-go/services/wifi"
	"satpoint-go/x/i2cx"
)

// Board is what boot needs from the hardware. I2C and GPS are nil when the
// board has none.
type Board struct {
	I2C     *i2cx.Port
	Station wifi.Station
	GPS     gps.Port
	Store   nvs.Store

	closers []func() error
}

func (b *Board) onClose(f func() error) { b.closers = append(b.closers, f) }

// Close releases host resources in reverse order of acquisition.
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

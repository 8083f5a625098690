// Package qmc5883l provides a driver for the QST QMC5883L three-axis
// magnetometer over I2C.
package qmc5883l

import (
	"errors"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x0D

// Registers and bits.
const (
	regDataXL   = 0x00
	regStatus   = 0x06
	regControl1 = 0x09
	regControl2 = 0x0A
	regSetReset = 0x0B
	regChipID   = 0x0D

	statusDRDY = 0x01
	statusOVL  = 0x02

	ctrl2SoftReset = 0x80

	chipID = 0xFF
)

// Mode/rate/range/oversampling fields of CONTROL1.
const (
	ModeStandby    = 0x00
	ModeContinuous = 0x01

	ODR10Hz  = 0x00
	ODR50Hz  = 0x04
	ODR100Hz = 0x08
	ODR200Hz = 0x0C

	Range2G = 0x00
	Range8G = 0x10

	OSR512 = 0x00
	OSR256 = 0x40
	OSR128 = 0x80
	OSR64  = 0xC0
)

var (
	ErrChipID   = errors.New("qmc5883l: unexpected chip id")
	ErrNotReady = errors.New("qmc5883l: data not ready")
	ErrOverflow = errors.New("qmc5883l: measurement overflow")
)

// Config controls non-hardware behaviour. Zero values select continuous
// mode, 200 Hz, 8 G, OSR 512.
type Config struct {
	Address uint16
	Rate    byte
	Range   byte
	OSR     byte
	// SkipIdentify disables the chip id check.
	SkipIdentify bool
}

type Sample struct {
	X, Y, Z int16
}

// Device wraps an I2C connection to a QMC5883L.
type Device struct {
	bus     drivers.I2C
	Address uint16
	buf     [6]byte
}

// New creates a new QMC5883L connection; it does not touch the device.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// Configure soft-resets the chip and starts continuous measurement.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
	if !cfg.SkipIdentify {
		var id [1]byte
		if err := d.bus.Tx(d.Address, []byte{regChipID}, id[:]); err != nil {
			return err
		}
		if id[0] != chipID {
			return ErrChipID
		}
	}
	if err := d.write(regControl2, ctrl2SoftReset); err != nil {
		return err
	}
	// Datasheet recommends SET/RESET period 0x01.
	if err := d.write(regSetReset, 0x01); err != nil {
		return err
	}
	rate := cfg.Rate
	if rate == 0 {
		rate = ODR200Hz
	}
	rng := cfg.Range
	if rng == 0 {
		rng = Range8G
	}
	return d.write(regControl1, ModeContinuous|rate|rng|cfg.OSR)
}

// Status returns the status register.
func (d *Device) Status() (byte, error) {
	var b [1]byte
	if err := d.bus.Tx(d.Address, []byte{regStatus}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadMagnetometer returns the latest field sample. ErrNotReady means no new
// conversion since the previous read; ErrOverflow means an axis saturated.
func (d *Device) ReadMagnetometer() (Sample, error) {
	st, err := d.Status()
	if err != nil {
		return Sample{}, err
	}
	if st&statusDRDY == 0 {
		return Sample{}, ErrNotReady
	}
	b := d.buf[:]
	if err := d.bus.Tx(d.Address, []byte{regDataXL}, b); err != nil {
		return Sample{}, err
	}
	if st&statusOVL != 0 {
		return Sample{}, ErrOverflow
	}
	return Sample{X: le16(b[0:]), Y: le16(b[2:]), Z: le16(b[4:])}, nil
}

func (d *Device) write(reg, val byte) error {
	return d.bus.Tx(d.Address, []byte{reg, val}, nil)
}

func le16(b []byte) int16 { return int16(uint16(b[1])<<8 | uint16(b[0])) }

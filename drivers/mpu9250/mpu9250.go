// Package mpu9250 provides a driver for the accelerometer and gyroscope of
// the InvenSense MPU-9250 (and MPU-9255) over I2C.
//
//	d := mpu9250.New(bus)
//	if err := d.Configure(mpu9250.Config{}); err != nil { ... }
//	accel, gyro, err := d.ReadAccelGyro()
//
// Samples are returned as raw signed counts; scale with the configured full
// scale range (AccelLSBPerG, GyroLSBPerDPS).
package mpu9250

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// I2C addresses (AD0 low / high).
const (
	Address    = 0x68
	AddressAlt = 0x69
)

// Registers.
const (
	regSmplrtDiv   = 0x19
	regConfig      = 0x1A
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regAccelXoutH  = 0x3B
	regPwrMgmt1    = 0x6B
	regWhoAmI      = 0x75

	pwrReset   = 0x80
	pwrClkPLL  = 0x01
	burstBytes = 14 // accel(6) temp(2) gyro(6)
)

// Known WHO_AM_I values.
const (
	WhoAmI9250 = 0x71
	WhoAmI9255 = 0x73
)

// AccelRange selects the accelerometer full scale.
type AccelRange uint8

const (
	Accel2G AccelRange = iota
	Accel4G
	Accel8G
	Accel16G
)

// GyroRange selects the gyroscope full scale.
type GyroRange uint8

const (
	Gyro250DPS GyroRange = iota
	Gyro500DPS
	Gyro1000DPS
	Gyro2000DPS
)

var (
	ErrWhoAmI = errors.New("mpu9250: unexpected WHO_AM_I")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x68 if zero.
	Address    uint16
	AccelRange AccelRange
	GyroRange  GyroRange
	// SkipIdentify disables the WHO_AM_I check.
	SkipIdentify bool
}

// Sample is one three-axis reading in raw counts.
type Sample struct {
	X, Y, Z int16
}

// Device wraps an I2C connection to an MPU-9250.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg Config
	buf [burstBytes]byte
}

// New creates a new MPU-9250 connection. The I2C bus must already be
// configured. This function only creates the Device object.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// Configure resets the device, selects the PLL clock, and applies ranges.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
	d.cfg = cfg

	if !cfg.SkipIdentify {
		id, err := d.WhoAmI()
		if err != nil {
			return err
		}
		if id != WhoAmI9250 && id != WhoAmI9255 {
			return ErrWhoAmI
		}
	}
	if err := d.write(regPwrMgmt1, pwrReset); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	if err := d.write(regPwrMgmt1, pwrClkPLL); err != nil {
		return err
	}
	// DLPF 41 Hz, 1 kHz internal, divide to 100 Hz.
	if err := d.write(regConfig, 0x03); err != nil {
		return err
	}
	if err := d.write(regSmplrtDiv, 9); err != nil {
		return err
	}
	if err := d.write(regGyroConfig, byte(cfg.GyroRange)<<3); err != nil {
		return err
	}
	return d.write(regAccelConfig, byte(cfg.AccelRange)<<3)
}

// WhoAmI returns the identity register.
func (d *Device) WhoAmI() (byte, error) {
	var b [1]byte
	if err := d.bus.Tx(d.Address, []byte{regWhoAmI}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadAccelGyro reads accelerometer and gyroscope in one burst so both
// belong to the same sampling instant.
func (d *Device) ReadAccelGyro() (accel, gyro Sample, err error) {
	b := d.buf[:]
	if err = d.bus.Tx(d.Address, []byte{regAccelXoutH}, b); err != nil {
		return
	}
	accel = Sample{X: be16(b[0:]), Y: be16(b[2:]), Z: be16(b[4:])}
	gyro = Sample{X: be16(b[8:]), Y: be16(b[10:]), Z: be16(b[12:])}
	return
}

// AccelLSBPerG returns counts per g for the configured range.
func (d *Device) AccelLSBPerG() float64 {
	return 16384.0 / float64(uint(1)<<d.cfg.AccelRange)
}

// GyroLSBPerDPS returns counts per degree/second for the configured range.
func (d *Device) GyroLSBPerDPS() float64 {
	return 131.0 / float64(uint(1)<<d.cfg.GyroRange)
}

func (d *Device) write(reg, val byte) error {
	return d.bus.Tx(d.Address, []byte{reg, val}, nil)
}

func be16(b []byte) int16 { return int16(uint16(b[0])<<8 | uint16(b[1])) }

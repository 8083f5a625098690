// Package sim provides host-side stand-ins for the board peripherals: an I2C
// bus with register-level MPU-9250 and QMC5883L models, and a station-mode
// network stack that emits notifications from its own goroutine.
package sim

import (
	"errors"
	"math"
	"sync"

	"satpoint-go/types"
)

// Peripheral addresses on the simulated bus.
const (
	AddrMPU = 0x68
	AddrQMC = 0x0D
)

// Full-scale factors used when synthesising samples.
const (
	AccelCountsPerG = 16384.0 // MPU-9250 at ±2 g
	MagCountsPerUT  = 30.0    // QMC5883L at ±8 G (3000 LSB/G)
)

var ErrNoDevice = errors.New("sim: no device at address")

type regFile struct {
	regs [256]byte
}

// I2C implements drivers.I2C. Writes set the register pointer (w[0]) and
// store any following bytes; reads auto-increment from the pointer.
type I2C struct {
	mu   sync.Mutex
	devs map[uint16]*regFile
	fail map[uint16]error
	ovl  bool
	txs  int
}

// NewI2C returns a bus with both sensors present and level, north-facing.
func NewI2C() *I2C {
	b := &I2C{
		devs: map[uint16]*regFile{AddrMPU: {}, AddrQMC: {}},
		fail: map[uint16]error{},
	}
	b.devs[AddrMPU].regs[0x75] = 0x71
	b.devs[AddrQMC].regs[0x0D] = 0xFF
	b.SetAttitude(types.Orientation{}, 60)
	return b
}

// Remove detaches the device at addr so transactions are NACKed.
func (b *I2C) Remove(addr uint16) {
	b.mu.Lock()
	delete(b.devs, addr)
	b.mu.Unlock()
}

// Fail makes every transaction to addr return err; nil clears.
func (b *I2C) Fail(addr uint16, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.fail, addr)
		return
	}
	b.fail[addr] = err
}

// Overflow raises the magnetometer overflow flag.
func (b *I2C) Overflow(on bool) {
	b.mu.Lock()
	b.ovl = on
	b.mu.Unlock()
}

// Txs returns the number of transactions that reached a device.
func (b *I2C) Txs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txs
}

// Reg returns the raw value of a register.
func (b *I2C) Reg(addr uint16, reg byte) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d := b.devs[addr]; d != nil {
		return d.regs[reg]
	}
	return 0
}

// SetRaw loads raw accelerometer, gyroscope and magnetometer samples.
func (b *I2C) SetRaw(accel, gyro, mag types.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d := b.devs[AddrMPU]; d != nil {
		putBE(d.regs[0x3B:], accel)
		putBE(d.regs[0x43:], gyro)
	}
	if d := b.devs[AddrQMC]; d != nil {
		putLE(d.regs[0x00:], mag)
	}
}

// SetAttitude synthesises the accelerometer and magnetometer samples a
// stationary board would produce at the given attitude (degrees) in a field
// of 50 µT with the given inclination (degrees, positive down).
func (b *I2C) SetAttitude(o types.Orientation, dip float64) {
	accel, mag := Synthesize(o, dip)
	b.SetRaw(accel, types.Vec3{}, mag)
}

// Synthesize returns raw (accel, mag) for a stationary attitude. Rotation is
// Z-Y-X (yaw, pitch, roll) from a north-east-down frame into the body frame.
func Synthesize(o types.Orientation, dip float64) (accel, mag types.Vec3) {
	r, p, y := rad(o.Roll), rad(o.Pitch), rad(o.Yaw)
	d := rad(dip)
	g := rotate(r, p, y, [3]float64{0, 0, 1})
	m := rotate(r, p, y, [3]float64{math.Cos(d), 0, math.Sin(d)})
	accel = vec(g, AccelCountsPerG)
	mag = vec(m, 50*MagCountsPerUT)
	return
}

func rotate(r, p, y float64, v [3]float64) [3]float64 {
	// Rz(yaw)
	v = [3]float64{
		math.Cos(y)*v[0] + math.Sin(y)*v[1],
		-math.Sin(y)*v[0] + math.Cos(y)*v[1],
		v[2],
	}
	// Ry(pitch)
	v = [3]float64{
		math.Cos(p)*v[0] - math.Sin(p)*v[2],
		v[1],
		math.Sin(p)*v[0] + math.Cos(p)*v[2],
	}
	// Rx(roll)
	return [3]float64{
		v[0],
		math.Cos(r)*v[1] + math.Sin(r)*v[2],
		-math.Sin(r)*v[1] + math.Cos(r)*v[2],
	}
}

func vec(v [3]float64, scale float64) types.Vec3 {
	return types.Vec3{X: sat(v[0] * scale), Y: sat(v[1] * scale), Z: sat(v[2] * scale)}
}

func sat(f float64) int16 {
	f = math.Round(f)
	if f > math.MaxInt16 {
		return math.MaxInt16
	}
	if f < math.MinInt16 {
		return math.MinInt16
	}
	return int16(f)
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func putBE(b []byte, v types.Vec3) {
	for i, x := range [3]int16{v.X, v.Y, v.Z} {
		b[2*i] = byte(uint16(x) >> 8)
		b[2*i+1] = byte(uint16(x))
	}
}

func putLE(b []byte, v types.Vec3) {
	for i, x := range [3]int16{v.X, v.Y, v.Z} {
		b[2*i] = byte(uint16(x))
		b[2*i+1] = byte(uint16(x) >> 8)
	}
}

// Tx implements drivers.I2C.
func (b *I2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail[addr]; err != nil {
		return err
	}
	d := b.devs[addr]
	if d == nil {
		return ErrNoDevice
	}
	b.txs++
	if len(w) == 0 {
		// Bare read continues from register 0, as both chips do after reset.
		copyRegs(d, 0, r)
		return nil
	}
	ptr := w[0]
	for i, v := range w[1:] {
		d.regs[ptr+byte(i)] = v
	}
	b.sideEffects(addr, d, ptr)
	if addr == AddrQMC && ptr == 0x06 {
		d.regs[0x06] = b.qmcStatus(d)
	}
	copyRegs(d, ptr, r)
	return nil
}

func copyRegs(d *regFile, ptr byte, r []byte) {
	for i := range r {
		r[i] = d.regs[ptr+byte(i)]
	}
}

func (b *I2C) sideEffects(addr uint16, d *regFile, ptr byte) {
	switch {
	case addr == AddrMPU && ptr == 0x6B && d.regs[0x6B]&0x80 != 0:
		d.regs[0x6B] = 0x40 // reset completes into sleep
	case addr == AddrQMC && ptr == 0x0A && d.regs[0x0A]&0x80 != 0:
		d.regs[0x0A] = 0
		d.regs[0x09] = 0
	}
}

// qmcStatus reports DRDY while in continuous mode.
func (b *I2C) qmcStatus(d *regFile) byte {
	var st byte
	if d.regs[0x09]&0x03 == 0x01 {
		st |= 0x01
	}
	if b.ovl {
		st |= 0x02
	}
	return st
}

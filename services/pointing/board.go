package pointing

import (
	"log/slog"

	"satpoint-go/drivers/mpu9250"
	"satpoint-go/drivers/qmc5883l"
	"satpoint-go/errcode"
	"satpoint-go/types"
	"satpoint-go/x/i2cx"
	"satpoint-go/x/logx"
)

const busOwner = "pointing"

// Sensors is the acquisition side of the pipeline.
type Sensors interface {
	// Init acquires the bus and configures the chips. Called once.
	Init() error
	ReadAccelGyro() (accel, gyro types.Vec3, err error)
	ReadMagnetometer() (types.Vec3, error)
	Close() error
}

// Board is an MPU-9250 and a QMC5883L sharing one I2C bus.
type Board struct {
	port *i2cx.Port
	MPU  mpu9250.Config
	QMC  qmc5883l.Config

	i2cLog *slog.Logger
	qmcLog *slog.Logger
	mpu    *mpu9250.Device
	qmc    *qmc5883l.Device
}

func NewBoard(port *i2cx.Port, l *slog.Logger) *Board {
	return &Board{
		port:   port,
		i2cLog: logx.Tag(l, logx.TagI2C),
		qmcLog: logx.Tag(l, logx.TagQMC),
	}
}

// Init claims the bus for the pipeline and configures both sensors. On
// failure the bus is released again.
func (b *Board) Init() error {
	bus, err := b.port.Claim(busOwner)
	if err != nil {
		return errcode.Wrap(errcode.BusInitFailed, "claim", err)
	}
	b.i2cLog.Info("bus claimed", "bus", b.port.ID())

	b.mpu = mpu9250.New(bus)
	if err := b.mpu.Configure(b.MPU); err != nil {
		b.port.Release(busOwner)
		return errcode.Wrap(errcode.BusInitFailed, "mpu9250", err)
	}
	b.qmc = qmc5883l.New(bus)
	if err := b.qmc.Configure(b.QMC); err != nil {
		b.port.Release(busOwner)
		return errcode.Wrap(errcode.BusInitFailed, "qmc5883l", err)
	}
	b.qmcLog.Info("magnetometer ready")
	return nil
}

func (b *Board) ReadAccelGyro() (accel, gyro types.Vec3, err error) {
	a, g, err := b.mpu.ReadAccelGyro()
	if err != nil {
		return
	}
	return types.Vec3(a), types.Vec3(g), nil
}

func (b *Board) ReadMagnetometer() (types.Vec3, error) {
	m, err := b.qmc.ReadMagnetometer()
	if err != nil {
		return types.Vec3{}, err
	}
	return types.Vec3(m), nil
}

func (b *Board) Close() error {
	b.port.Release(busOwner)
	b.i2cLog.Info("bus released", "bus", b.port.ID())
	return nil
}

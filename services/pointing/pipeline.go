// Package pointing runs the sensor pipeline: once per period it reads the
// inertial and magnetic sensors, fuses them into an orientation, derives the
// pointing angles and hands the result to an output port.
package pointing

import (
	"context"
	"log/slog"
	"time"

	"satpoint-go/errcode"
	"satpoint-go/services/pointing/attitude"
	"satpoint-go/types"
	"satpoint-go/x/logx"
	"satpoint-go/x/timex"
)

const DefaultPeriod = 1000 * time.Millisecond

// Read stages reported to observers.
const (
	StageAccelGyro = "accel_gyro"
	StageMag       = "mag"
)

// Observer receives pipeline statistics; calls must not block.
type Observer interface {
	Iteration(r types.Reading)
	ReadFailed(stage string)
}

type Options struct {
	// Period between iteration starts; 0 selects DefaultPeriod.
	Period time.Duration
	// ReadPolicy is types.ReadPolicySkip (default) or
	// types.ReadPolicyTerminate.
	ReadPolicy string
	Output     Output
	Observer   Observer
	Logger     *slog.Logger
}

type Pipeline struct {
	sensors Sensors
	period  time.Duration
	policy  string
	out     Output
	obs     Observer
	log     *slog.Logger
	i2cLog  *slog.Logger
}

func New(s Sensors, o Options) *Pipeline {
	if o.Period <= 0 {
		o.Period = DefaultPeriod
	}
	if o.ReadPolicy == "" {
		o.ReadPolicy = types.ReadPolicySkip
	}
	if o.Output == nil {
		o.Output = Discard
	}
	return &Pipeline{
		sensors: s,
		period:  o.Period,
		policy:  o.ReadPolicy,
		out:     o.Output,
		obs:     o.Observer,
		log:     logx.Tag(o.Logger, logx.TagCalc),
		i2cLog:  logx.Tag(o.Logger, logx.TagI2C),
	}
}

func (p *Pipeline) Period() time.Duration { return p.period }

// Run initialises the sensors once and iterates until ctx ends. An init
// failure is logged once and returned without any sensor read. With the
// terminate policy a read failure ends the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.sensors.Init(); err != nil {
		if !errcode.Is(err, errcode.BusInitFailed) {
			err = errcode.Wrap(errcode.BusInitFailed, "pointing.Init", err)
		}
		p.i2cLog.Error("sensor bus init failed", "err", err)
		return err
	}
	defer func() {
		if err := p.sensors.Close(); err != nil {
			p.i2cLog.Warn("sensor close", "err", err)
		}
	}()

	t := time.NewTicker(p.period)
	defer t.Stop()
	for {
		if err := p.iterate(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (p *Pipeline) iterate(ctx context.Context) error {
	accel, gyro, err := p.sensors.ReadAccelGyro()
	if err != nil {
		return p.readFailed(StageAccelGyro, err)
	}
	mag, err := p.sensors.ReadMagnetometer()
	if err != nil {
		return p.readFailed(StageMag, err)
	}

	o := attitude.Fuse(accel, mag)
	pa := attitude.Transform(o)
	p.log.Info("orientation", "roll", o.Roll, "pitch", o.Pitch, "yaw", o.Yaw)
	p.log.Info("pointing", "elevation", pa.Elevation, "azimuth", pa.Azimuth)

	r := types.Reading{
		Accel:       accel,
		Gyro:        gyro,
		Mag:         mag,
		Orientation: o,
		Pointing:    pa,
		TSms:        timex.NowMs(),
	}
	p.out.Emit(ctx, r)
	if p.obs != nil {
		p.obs.Iteration(r)
	}
	return nil
}

func (p *Pipeline) readFailed(stage string, err error) error {
	if p.obs != nil {
		p.obs.ReadFailed(stage)
	}
	err = errcode.Wrap(errcode.SampleReadFailed, stage, err)
	if p.policy == types.ReadPolicyTerminate {
		p.log.Error("sample read failed, stopping", "stage", stage, "err", err)
		return err
	}
	p.log.Warn("sample read failed, skipping", "stage", stage, "err", err)
	return nil
}

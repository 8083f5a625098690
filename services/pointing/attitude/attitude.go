// Package attitude turns raw accelerometer and magnetometer samples into an
// orientation, and an orientation into pointing angles. Both stages are pure.
//
// Body axes: X forward (boresight), Y right, Z down. A level board facing
// magnetic north reads gravity on +Z and the horizontal field on +X.
package attitude

import (
	"math"

	"satpoint-go/types"
)

const deg = 180 / math.Pi

// Fuse computes roll, pitch and a tilt-compensated heading. Only the
// direction of each vector matters, so raw counts in any full-scale range
// are accepted. Yaw is in [0,360).
func Fuse(accel, mag types.Vec3) types.Orientation {
	gx, gy, gz := float64(accel.X), float64(accel.Y), float64(accel.Z)
	bx, by, bz := float64(mag.X), float64(mag.Y), float64(mag.Z)

	roll := math.Atan2(gy, gz)
	sr, cr := math.Sincos(roll)
	pitch := math.Atan2(-gx, gy*sr+gz*cr)
	sp, cp := math.Sincos(pitch)

	// De-rotate the field into the horizontal plane.
	hx := bx*cp + by*sp*sr + bz*sp*cr
	hy := bz*sr - by*cr
	yaw := math.Atan2(hy, hx)

	return types.Orientation{
		Roll:  roll * deg,
		Pitch: pitch * deg,
		Yaw:   wrap360(yaw * deg),
	}
}

// Transform maps an orientation to the direction the boresight points at:
// elevation above the horizon and azimuth from magnetic north.
func Transform(o types.Orientation) types.PointingAngles {
	return types.PointingAngles{
		Elevation: o.Pitch,
		Azimuth:   wrap360(o.Yaw),
	}
}

func wrap360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

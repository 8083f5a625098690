package attitude

import (
	"math"
	"testing"

	"satpoint-go/platform/sim"
	"satpoint-go/types"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func angleNear(a, b, tol float64) bool {
	d := math.Mod(math.Abs(a-b), 360)
	return d <= tol || 360-d <= tol
}

func TestFuseRecoversAttitude(t *testing.T) {
	cases := []types.Orientation{
		{},
		{Yaw: 90},
		{Yaw: 225},
		{Pitch: 30, Yaw: 45},
		{Roll: -20, Pitch: 10, Yaw: 300},
		{Roll: 35, Pitch: -40, Yaw: 170},
		{Pitch: 80, Yaw: 10},
	}
	for _, want := range cases {
		accel, mag := sim.Synthesize(want, 60)
		got := Fuse(accel, mag)
		if !near(got.Roll, want.Roll, 0.5) || !near(got.Pitch, want.Pitch, 0.5) || !angleNear(got.Yaw, want.Yaw, 0.5) {
			t.Errorf("Fuse(%+v) = %+v", want, got)
		}
		if got.Yaw < 0 || got.Yaw >= 360 {
			t.Errorf("yaw %v out of range", got.Yaw)
		}
	}
}

func TestTransform(t *testing.T) {
	p := Transform(types.Orientation{Roll: 12, Pitch: 42.5, Yaw: -90})
	if p.Elevation != 42.5 || p.Azimuth != 270 {
		t.Fatalf("Transform = %+v", p)
	}
	if p := Transform(types.Orientation{Yaw: 720}); p.Azimuth != 0 {
		t.Fatalf("azimuth = %v", p.Azimuth)
	}
}

func TestDeterministic(t *testing.T) {
	accel := types.Vec3{X: -812, Y: 1200, Z: 16100}
	mag := types.Vec3{X: 410, Y: -377, Z: 1250}
	first := Transform(Fuse(accel, mag))
	// Unrelated calls in between must not influence the result.
	for i := 0; i < 100; i++ {
		_ = Transform(Fuse(types.Vec3{X: int16(i)}, types.Vec3{Y: int16(-i)}))
		if got := Transform(Fuse(accel, mag)); got != first {
			t.Fatalf("iteration %d: %+v != %+v", i, got, first)
		}
	}
}

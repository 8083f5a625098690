package types

// Vec3 is one raw three-axis sample in sensor counts.
type Vec3 struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// Orientation is attitude in degrees.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// PointingAngles is a target direction in degrees: elevation above the
// horizon and azimuth clockwise from magnetic north in [0,360).
type PointingAngles struct {
	Elevation float64 `json:"elevation"`
	Azimuth   float64 `json:"azimuth"`
}

// Reading is the product of one pipeline iteration. Published
// (non-retained) on "pointing/reading".
type Reading struct {
	Accel       Vec3           `json:"accel"`
	Gyro        Vec3           `json:"gyro"`
	Mag         Vec3           `json:"mag"`
	Orientation Orientation    `json:"orientation"`
	Pointing    PointingAngles `json:"pointing"`
	TSms        int64          `json:"ts_ms"`
}

// GeoFix is a position decoded from the GPS receiver, retained on "gps/fix".
type GeoFix struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	AltM    float64 `json:"alt_m"`
	Sats    int     `json:"sats"`
	Quality int     `json:"quality"`
	TSms    int64   `json:"ts_ms"`
}

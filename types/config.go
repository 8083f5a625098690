package types

import "time"

// Device configuration. Each section is also published retained on
// "config/<section>".

type Config struct {
	Device    string          `json:"device" yaml:"device"`
	WiFi      WiFiConfig      `json:"wifi" yaml:"wifi"`
	Heartbeat HeartbeatConfig `json:"heartbeat" yaml:"heartbeat"`
	Sensor    SensorConfig    `json:"sensor" yaml:"sensor"`
	GPS       GPSConfig       `json:"gps" yaml:"gps"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
}

type WiFiConfig struct {
	SSID     string `json:"ssid" yaml:"ssid"`
	Password string `json:"password" yaml:"password"`
	// MinAuth is the weakest accepted authentication mode
	// ("open", "wpa_psk", "wpa2_psk", "wpa2_mixed").
	MinAuth string `json:"min_auth" yaml:"min_auth"`
	// ReconnectLimit bounds reconnect attempts per outage; 0 = unlimited.
	ReconnectLimit int `json:"reconnect_limit" yaml:"reconnect_limit"`
}

type HeartbeatConfig struct {
	// Interval in seconds.
	Interval float64 `json:"interval" yaml:"interval"`
}

func (h HeartbeatConfig) Period() time.Duration {
	return time.Duration(h.Interval * float64(time.Second))
}

// Read policies for per-sample sensor failures.
const (
	ReadPolicySkip      = "skip"
	ReadPolicyTerminate = "terminate"
)

type SensorConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Bus         string `json:"bus" yaml:"bus"`
	PeriodMS    int    `json:"period_ms" yaml:"period_ms"`
	OnReadError string `json:"on_read_error" yaml:"on_read_error"`
}

func (s SensorConfig) Period() time.Duration {
	return time.Duration(s.PeriodMS) * time.Millisecond
}

type GPSConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    string `json:"port" yaml:"port"`
	Baud    int    `json:"baud" yaml:"baud"`
}

type StorageConfig struct {
	// Path of the host-side store; ignored on MCU targets.
	Path string `json:"path" yaml:"path"`
}

// StationConfig is what the network stack receives for station mode.
type StationConfig struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
	MinAuth  string `json:"min_auth"`
}

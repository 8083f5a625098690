// Package config resolves the device configuration: built-in defaults,
// overlaid by the embedded per-device JSON, optionally overlaid by a YAML
// file on host builds. Each section is then published retained on
// "config/<section>".
package config

import (
	"encoding/json"

	"satpoint-go/bus"
	"satpoint-go/errcode"
	"satpoint-go/types"
)

const (
	DefaultDevice = "pico"
	configPrefix  = "config"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Defaults returns the configuration used for any field a device config
// leaves unset.
func Defaults() types.Config {
	return types.Config{
		Device: DefaultDevice,
		WiFi: types.WiFiConfig{
			MinAuth: types.AuthWPA2,
		},
		Heartbeat: types.HeartbeatConfig{Interval: 1},
		Sensor: types.SensorConfig{
			Bus:         "i2c0",
			PeriodMS:    1000,
			OnReadError: types.ReadPolicySkip,
		},
		GPS: types.GPSConfig{
			Port: "uart1",
			Baud: 9600,
		},
	}
}

// Load decodes the embedded config of device over Defaults and validates
// the result.
func Load(device string) (types.Config, error) {
	cfg, err := embedded(device)
	if err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

func embedded(device string) (types.Config, error) {
	if device == "" {
		device = DefaultDevice
	}
	cfg := Defaults()
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return cfg, &errcode.E{C: errcode.InvalidConfig, Op: "config.Load", Msg: "no embedded config for device " + device}
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, errcode.Wrap(errcode.InvalidConfig, "config.Load", err)
	}
	cfg.Device = device
	return cfg, nil
}

// Validate rejects configurations the firmware cannot run with. An empty
// SSID is allowed and means "use the credentials stored on the device".
func Validate(cfg types.Config) error {
	bad := func(msg string) error {
		return &errcode.E{C: errcode.InvalidConfig, Op: "config.Validate", Msg: msg}
	}
	switch cfg.WiFi.MinAuth {
	case types.AuthOpen:
	case types.AuthWPA, types.AuthWPA2, types.AuthWPA2Mixed:
		if cfg.WiFi.SSID != "" && len(cfg.WiFi.Password) < 8 {
			return bad("wifi.password shorter than 8 characters")
		}
	default:
		return bad("unknown wifi.min_auth " + cfg.WiFi.MinAuth)
	}
	if len(cfg.WiFi.SSID) > 32 {
		return bad("wifi.ssid longer than 32 bytes")
	}
	if cfg.WiFi.ReconnectLimit < 0 {
		return bad("wifi.reconnect_limit is negative")
	}
	if cfg.Heartbeat.Interval <= 0 {
		return bad("heartbeat.interval must be positive")
	}
	if cfg.Sensor.PeriodMS <= 0 {
		return bad("sensor.period_ms must be positive")
	}
	switch cfg.Sensor.OnReadError {
	case types.ReadPolicySkip, types.ReadPolicyTerminate:
	default:
		return bad("unknown sensor.on_read_error " + cfg.Sensor.OnReadError)
	}
	if cfg.GPS.Enabled && cfg.GPS.Baud <= 0 {
		return bad("gps.baud must be positive")
	}
	return nil
}

// Publish puts every section on the bus as a retained message. Credentials
// are not published.
func Publish(conn *bus.Connection, cfg types.Config) {
	wifi := cfg.WiFi
	wifi.Password = ""
	sections := []struct {
		key string
		val any
	}{
		{"device", cfg.Device},
		{"wifi", wifi},
		{"heartbeat", cfg.Heartbeat},
		{"sensor", cfg.Sensor},
		{"gps", cfg.GPS},
		{"storage", cfg.Storage},
	}
	for _, s := range sections {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, s.key), s.val, true))
	}
}

package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID
// Val: raw JSON bytes for that device; absent fields keep their defaults.
// -----------------------------------------------------------------------------

const cfgPico = `{
  "wifi": {
      "ssid": "NVT",
      "password": "12345678",
      "min_auth": "wpa2_psk"
  },
  "heartbeat": {
      "interval": 2
  },
  "sensor": {
      "enabled": false,
      "bus": "i2c0",
      "period_ms": 1000
  },
  "gps": {
      "enabled": false,
      "port": "uart1",
      "baud": 9600
  }
}`

const cfgSim = `{
  "wifi": {
      "ssid": "NVT",
      "password": "12345678"
  },
  "sensor": {
      "enabled": true
  },
  "storage": {
      "path": "satpoint.db"
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"sim":  []byte(cfgSim),
}

//go:build !tinygo

package config

import (
	"os"

	"satpoint-go/errcode"
	"satpoint-go/types"

	"gopkg.in/yaml.v3"
)

// LoadFile resolves the embedded config of device and overlays the YAML
// document at path. Keys absent from the file keep their embedded values.
func LoadFile(device, path string) (types.Config, error) {
	cfg, err := embedded(device)
	if err != nil {
		return cfg, err
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errcode.Wrap(errcode.InvalidConfig, "config.LoadFile", err)
		}
		if err := Overlay(&cfg, raw); err != nil {
			return cfg, err
		}
	}
	return cfg, Validate(cfg)
}

// Overlay decodes a YAML document onto cfg.
func Overlay(cfg *types.Config, doc []byte) error {
	if err := yaml.Unmarshal(doc, cfg); err != nil {
		return errcode.Wrap(errcode.InvalidConfig, "config.Overlay", err)
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg types.Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

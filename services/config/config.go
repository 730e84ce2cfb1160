package config

import (
	"encoding/json"
	"errors"

	"fawtrap-go/bus"
	"fawtrap-go/types"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// Load decodes and validates the embedded config for a device.
// A validation failure is fatal: the caller must refuse to start.
func Load(device string) (*types.TrapConfig, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errors.New("no embedded config for device: " + device)
	}
	var cfg types.TrapConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Publish emits each config section as a retained message on
// "config/<section>", so late-starting services pick it up immediately.
func (s *ConfigService) Publish(cfg *types.TrapConfig, conn *bus.Connection) {
	sections := []struct {
		key     string
		payload any
	}{
		{"device", cfg.Device},
		{"detection", cfg.Detection},
		{"night", cfg.Night},
		{"capture", cfg.Capture},
		{"env", cfg.Env},
		{"link", cfg.Link},
		{"store", cfg.Store},
		{"pins", cfg.Pins},
	}
	for _, sec := range sections {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, sec.key), sec.payload, true))
	}
}

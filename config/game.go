package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/gridmarket/core/catalog"
)

// GameConfig holds server-wide game settings.
type GameConfig struct {
	// DefaultMode is used by simulate when no mode is given.
	DefaultMode string `json:"default_mode"`
	// TickMS is the countdown resolution in milliseconds.
	TickMS int `json:"tick_ms"`
}

func (c *GameConfig) SetDefaults() {
	if c.DefaultMode == "" {
		c.DefaultMode = "beginner"
	}
	if c.TickMS <= 0 {
		c.TickMS = 1000
	}
}

func (c GameConfig) Validate() error {
	if _, err := catalog.RoundCount(c.DefaultMode); err != nil {
		return err
	}
	if c.TickMS < 10 {
		return fmt.Errorf("tick_ms must be at least 10, got %d", c.TickMS)
	}
	return nil
}

// Tick returns the countdown resolution.
func (c GameConfig) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// CatalogConfig points at an optional asset preset applied to games created
// without one.
type CatalogConfig struct {
	PresetPath string `json:"preset_path"`
}

func (c CatalogConfig) Validate() error {
	if c.PresetPath == "" {
		return nil
	}
	if _, err := catalog.LoadPreset(c.PresetPath); err != nil {
		return fmt.Errorf("preset %s: %w", c.PresetPath, err)
	}
	return nil
}

// PublishConfig toggles the MQTT egress and ingress. Both run whenever a
// broker is configured unless disabled.
type PublishConfig struct {
	DisableEgress  bool `json:"disable_egress"`
	DisableIngress bool `json:"disable_ingress"`
	// HostKey must be presented to create games and to join as host.
	HostKey string `json:"host_key"`
}

package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/gridmarket/core/balancing"
	"github.com/kilianp07/gridmarket/core/factory"
	"github.com/kilianp07/gridmarket/core/metrics"
	_ "github.com/kilianp07/gridmarket/infra/metrics"
	"github.com/kilianp07/gridmarket/infra/mqtt"
)

type Config struct {
	Game      GameConfig           `json:"game"`
	Catalog   CatalogConfig        `json:"catalog"`
	MQTT      mqtt.Config          `json:"mqtt"`
	Publish   PublishConfig        `json:"publish"`
	Metrics   metrics.Config       `json:"metrics"`
	RoundLog  RoundLogConfig       `json:"round_log"`
	API       APIConfig            `json:"api"`
	Sentry    SentryConfig         `json:"sentry"`
	Clearer   factory.ModuleConfig `json:"clearer"`
	Balancing factory.ModuleConfig `json:"balancing"`
	Janitor   JanitorConfig        `json:"janitor"`
}

// Load reads a yaml or json file and applies K_ environment overrides, where
// a double underscore separates nested keys (K_API__ADDR=:9000).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, used when no
// file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

func (c *Config) SetDefaults() {
	c.Game.SetDefaults()
	c.RoundLog.SetDefaults()
	c.API.SetDefaults()
	c.Janitor.SetDefaults()
	if c.Clearer.Type == "" {
		c.Clearer.Type = "merit_order"
	}
	if c.Balancing.Type == "" {
		c.Balancing.Type = "none"
	}
}

func (c Config) Validate() error {
	if err := c.Game.Validate(); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.RoundLog.Validate(); err != nil {
		return fmt.Errorf("round_log: %w", err)
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Janitor.Validate(); err != nil {
		return fmt.Errorf("janitor: %w", err)
	}
	if _, err := balancing.New(c.Balancing); err != nil {
		return fmt.Errorf("balancing: %w", err)
	}
	for _, s := range c.Metrics.Sinks {
		if !contains(metrics.SinkTypes(), s.Type) {
			return fmt.Errorf("metrics: unknown sink type %q", s.Type)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

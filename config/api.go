package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// APIConfig configures the HTTP read API.
type APIConfig struct {
	Addr string `json:"addr"`
	// Token, when set, is required as a bearer token on /api routes.
	Token          string   `json:"token"`
	AllowedOrigins []string `json:"allowed_origins"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}

func (c APIConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}

// JanitorConfig schedules pruning of finished and idle games.
type JanitorConfig struct {
	// Schedule is a cron expression with a seconds field.
	Schedule         string `json:"schedule"`
	RetentionMinutes int    `json:"retention_minutes"`
}

func (c *JanitorConfig) SetDefaults() {
	if c.Schedule == "" {
		c.Schedule = "0 */10 * * * *"
	}
	if c.RetentionMinutes <= 0 {
		c.RetentionMinutes = 120
	}
}

func (c JanitorConfig) Validate() error {
	p := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := p.Parse(c.Schedule); err != nil {
		return fmt.Errorf("schedule %q: %w", c.Schedule, err)
	}
	return nil
}

func (c JanitorConfig) Retention() time.Duration {
	return time.Duration(c.RetentionMinutes) * time.Minute
}

package config

import (
	"fmt"
	"time"
)

type Config struct {
	Bind            string
	Port            int
	PublicURL       string
	PromptsFile     string
	ReclaimInterval time.Duration
	Verbose         bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.ReclaimInterval <= 0 {
		return fmt.Errorf("reclaim interval must be positive: %s", c.ReclaimInterval)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// Package config loads the threadline runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/threadline/internal/domain"
)

// Config holds the service's runtime configuration.
type Config struct {
	DBPath     string          `json:"db_path"`
	ListenAddr string          `json:"listen_addr"`
	RootThread domain.ThreadID `json:"root_thread"`
}

// Load reads a JSON config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":9410"
	}
	if c.RootThread == "" {
		c.RootThread = "main"
	}
}

func (c *Config) validate() error {
	var problems []string

	if c.DBPath == "" {
		problems = append(problems, "db_path is required")
	}
	if err := c.RootThread.Validate(); err != nil {
		problems = append(problems, fmt.Sprintf("root_thread: %v", err))
	} else if !c.RootThread.IsRoot() {
		problems = append(problems, "root_thread must have depth 1")
	}

	if len(problems) > 0 {
		return &domain.CoreError{
			Code:    domain.ErrConfigInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
		}
	}
	return nil
}

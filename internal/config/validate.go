package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.CharactersDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/rosterforge/config.toml"
		}
		return fmt.Errorf("paths.characters_dir is required. Edit %s (create with 'rosterforge config init')", defaultPath)
	}

	// Icon merge needs both shared archives; one without the other is a
	// misconfiguration rather than a degraded mode.
	common := strings.TrimSpace(c.CommonArchivePath) != ""
	menu := strings.TrimSpace(c.MenuArchivePath) != ""
	if common != menu {
		return errors.New("paths.common_archive and paths.menu_archive must be set together")
	}

	if c.StagingDir == c.OutputDir {
		return errors.New("paths.staging_dir and paths.output_dir must differ")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workers <= 0 {
		return errors.New("workflow.workers must be positive")
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.HeartbeatTimeout <= c.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

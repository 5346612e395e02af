package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"rosterforge/internal/config"
	"rosterforge/internal/layout"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loadLayout resolves the roster: an explicit preset flag wins, then the
// configured preset, then the stock grid.
func (c *commandContext) loadLayout(presetFlag string) (*layout.Layout, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	path := strings.TrimSpace(presetFlag)
	if path == "" {
		path = cfg.Mappings.LayoutPresetPath
	}
	if path == "" {
		return layout.Default(), nil
	}
	return layout.LoadPreset(path)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMappings(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.CharactersDir, err = expandPath(strings.TrimSpace(c.CharactersDir)); err != nil {
		return fmt.Errorf("paths.characters_dir: %w", err)
	}
	if c.DonorAudioDir, err = expandPath(strings.TrimSpace(c.DonorAudioDir)); err != nil {
		return fmt.Errorf("paths.donor_audio_dir: %w", err)
	}
	if c.BoneDir, err = expandPath(strings.TrimSpace(c.BoneDir)); err != nil {
		return fmt.Errorf("paths.bone_dir: %w", err)
	}
	if c.CommonArchivePath, err = expandPath(strings.TrimSpace(c.CommonArchivePath)); err != nil {
		return fmt.Errorf("paths.common_archive: %w", err)
	}
	if c.MenuArchivePath, err = expandPath(strings.TrimSpace(c.MenuArchivePath)); err != nil {
		return fmt.Errorf("paths.menu_archive: %w", err)
	}
	if strings.TrimSpace(c.StagingDir) == "" {
		c.StagingDir = defaultStagingDir
	}
	if c.StagingDir, err = expandPath(c.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.OutputDir, err = expandPath(c.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.LogDir) == "" {
		c.LogDir = defaultLogDir
	}
	if c.LogDir, err = expandPath(c.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMappings() error {
	var err error
	if c.SlotTemplatePath, err = expandPath(strings.TrimSpace(c.SlotTemplatePath)); err != nil {
		return fmt.Errorf("mappings.slot_template: %w", err)
	}
	if c.AudioAssetMapPath, err = expandPath(strings.TrimSpace(c.AudioAssetMapPath)); err != nil {
		return fmt.Errorf("mappings.audio_asset_map: %w", err)
	}
	if c.BfwavGroupsPath, err = expandPath(strings.TrimSpace(c.BfwavGroupsPath)); err != nil {
		return fmt.Errorf("mappings.bfwav_groups: %w", err)
	}
	if c.LayoutPresetPath, err = expandPath(strings.TrimSpace(c.LayoutPresetPath)); err != nil {
		return fmt.Errorf("mappings.layout_preset: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = defaultHeartbeatTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch c.LogFormat {
	case "", "console":
		c.LogFormat = "console"
	case "json":
	default:
		c.LogFormat = "console"
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CharactersDir     string `toml:"characters_dir"`
	DonorAudioDir     string `toml:"donor_audio_dir"`
	BoneDir           string `toml:"bone_dir"`
	CommonArchivePath string `toml:"common_archive"`
	MenuArchivePath   string `toml:"menu_archive"`
	StagingDir        string `toml:"staging_dir"`
	OutputDir         string `toml:"output_dir"`
	LogDir            string `toml:"log_dir"`
}

// Mappings contains paths to the mapping documents. Every entry is optional;
// a missing document falls back to built-in defaults or degraded behavior.
type Mappings struct {
	SlotTemplatePath  string `toml:"slot_template"`
	AudioAssetMapPath string `toml:"audio_asset_map"`
	BfwavGroupsPath   string `toml:"bfwav_groups"`
	LayoutPresetPath  string `toml:"layout_preset"`
}

// Audio contains audio completion behavior toggles.
type Audio struct {
	FillFromSibling bool `toml:"fill_from_sibling"`
}

// Workflow contains worker pool and heartbeat configuration.
type Workflow struct {
	Workers           int `toml:"workers"`
	HeartbeatInterval int `toml:"heartbeat_interval"`
	HeartbeatTimeout  int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	LogFormat string `toml:"format"`
	LogLevel  string `toml:"level"`
}

// Config encapsulates all configuration values.
//
// Configuration sections:
//   - paths: character repository, donor library, shared archives, staging and output
//   - mappings: slot template, audio asset map, bfwav groups, layout preset
//   - audio: completion behavior toggles
//   - workflow: worker pool sizing and heartbeats
//   - logging: log format and level
type Config struct {
	Paths    `toml:"paths"`
	Mappings `toml:"mappings"`
	Audio    `toml:"audio"`
	Workflow `toml:"workflow"`
	Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rosterforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rosterforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs. OutputDir is created
// on a best-effort basis so runs can start while the target volume is offline;
// preflight reports the condition before any bundle is staged.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.StagingDir, c.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.OutputDir) != "" {
		_ = os.MkdirAll(c.OutputDir, 0o755)
	}
	return nil
}

// DatabasePath returns the run ledger location inside the staging directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StagingDir, "ledger.db")
}

// IconMergeEnabled reports whether both shared UI archives are configured.
func (c *Config) IconMergeEnabled() bool {
	return strings.TrimSpace(c.CommonArchivePath) != "" && strings.TrimSpace(c.MenuArchivePath) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"rosterforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.CharactersDir = filepath.Join(base, "characters")
	cfgVal.StagingDir = filepath.Join(base, "staging")
	cfgVal.OutputDir = filepath.Join(base, "output")
	cfgVal.LogDir = filepath.Join(base, "logs")
	if err := os.MkdirAll(cfgVal.CharactersDir, 0o755); err != nil {
		t.Fatalf("mkdir characters dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDonorAudioDir points the config at a donor audio library, creating the
// directory under the test base.
func WithDonorAudioDir() ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "donor-audio")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir donor audio dir: %v", err)
		}
		b.cfg.DonorAudioDir = dir
	}
}

// WithBoneDir points the config at a bone reference directory, creating it
// under the test base.
func WithBoneDir() ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "bones")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir bone dir: %v", err)
		}
		b.cfg.BoneDir = dir
	}
}

// WithSharedArchives sets both shared UI archive paths under the test base.
// The files themselves are not created.
func WithSharedArchives() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.CommonArchivePath = filepath.Join(b.baseDir, "ui", "common.sarc")
		b.cfg.MenuArchivePath = filepath.Join(b.baseDir, "ui", "menu.sarc")
	}
}

// WithFillFromSibling enables sibling container fill on the test config.
func WithFillFromSibling() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FillFromSibling = true
	}
}

// WithWorkers overrides the worker pool size on the test config.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.StagingDir)
}

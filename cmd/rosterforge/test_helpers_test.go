package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rosterforge/internal/layout"
)

type cliTestEnv struct {
	baseDir       string
	configPath    string
	charactersDir string
	stagingDir    string
	outputDir     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:       base,
		configPath:    filepath.Join(base, "config.toml"),
		charactersDir: filepath.Join(base, "characters"),
		stagingDir:    filepath.Join(base, "staging"),
		outputDir:     filepath.Join(base, "output"),
	}
	if err := os.MkdirAll(env.charactersDir, 0o755); err != nil {
		t.Fatal(err)
	}

	doc := fmt.Sprintf(`[paths]
characters_dir = %q
staging_dir = %q
output_dir = %q
log_dir = %q

[workflow]
workers = 2
`, env.charactersDir, env.stagingDir, env.outputDir, filepath.Join(base, "logs"))
	if err := os.WriteFile(env.configPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e *cliTestEnv) seedCharacter(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(e.charactersDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

// writeRosterPreset builds a preset with the given names in the leading grid
// cells and every other cell empty.
func (e *cliTestEnv) writeRosterPreset(t *testing.T, names ...string) string {
	t.Helper()

	grid := make([]any, layout.GridCount)
	for i, name := range names {
		grid[i] = name
	}
	doc, err := json.Marshal(map[string]any{"grid_files": grid})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(e.baseDir, "roster.json")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

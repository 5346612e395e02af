package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rosterforge/internal/config"
	"rosterforge/internal/queue"
)

func TestCLIResolveReportsGaps(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seedCharacter(t, "DK")
	preset := env.writeRosterPreset(t, "DK")

	out, err := runCLI(t, env.configPath, "resolve", "--preset", preset)
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, out)
	}
	requireContains(t, out, "DK")
	requireContains(t, out, "Driver Model")
	requireContains(t, out, "tc_Chara_DK^l")
	requireContains(t, out, "1 with gaps")
}

func TestCLICompleteStagesEmptyBundle(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seedCharacter(t, "DK")
	preset := env.writeRosterPreset(t, "DK")

	out, err := runCLI(t, env.configPath, "complete", "--preset", preset)
	if err != nil {
		t.Fatalf("complete: %v\n%s", err, out)
	}
	requireContains(t, out, "DK (staged)")
	requireContains(t, out, "missing: Race Voice")
	requireContains(t, out, "Staged tree:")
	requireContains(t, out, "Apply with: rosterforge commit")

	out, err = runCLI(t, env.configPath, "runs")
	if err != nil {
		t.Fatalf("runs: %v\n%s", err, out)
	}
	requireContains(t, out, "DK")
	requireContains(t, out, "staged")

	out, err = runCLI(t, env.configPath, "runs", "trees")
	if err != nil {
		t.Fatalf("runs trees: %v\n%s", err, out)
	}
	requireContains(t, out, "MiB")
}

func TestCLIRunsMaintenance(t *testing.T) {
	env := setupCLITestEnv(t)
	seedLedger(t, env)

	out, err := runCLI(t, env.configPath, "runs")
	if err != nil {
		t.Fatalf("runs: %v\n%s", err, out)
	}
	requireContains(t, out, "DK")
	requireContains(t, out, "Yoshi")
	requireContains(t, out, "failed")

	out, err = runCLI(t, env.configPath, "runs", "retry")
	if err != nil {
		t.Fatalf("runs retry: %v\n%s", err, out)
	}
	requireContains(t, out, "Reset 1 bundle(s)")

	if out, err = runCLI(t, env.configPath, "runs", "clear"); err == nil {
		t.Fatalf("expected error without clear flags, got:\n%s", out)
	}

	out, err = runCLI(t, env.configPath, "runs", "clear", "--all")
	if err != nil {
		t.Fatalf("runs clear: %v\n%s", err, out)
	}
	requireContains(t, out, "Removed 2 entries")

	out, err = runCLI(t, env.configPath, "runs", "health")
	if err != nil {
		t.Fatalf("runs health: %v\n%s", err, out)
	}
	requireContains(t, out, "Bundles tracked: 0")

	out, err = runCLI(t, env.configPath, "runs", "trees")
	if err != nil {
		t.Fatalf("runs trees: %v\n%s", err, out)
	}
	requireContains(t, out, "No staged trees")
}

func TestCLIRunsRetryRejectsBadID(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.configPath, "runs", "retry", "zero")
	if err == nil {
		t.Fatalf("expected error for non-numeric id, got:\n%s", out)
	}
	requireContains(t, err.Error(), "invalid bundle id")
}

func TestCLIStatusChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "Character repository")
	requireContains(t, out, "Staging free space")
	requireContains(t, out, "OK")
}

func TestCLIConfigInitSkipsConfigLoad(t *testing.T) {
	// A bogus --config must not block init; the command is annotated to
	// skip config loading.
	bogus := filepath.Join(t.TempDir(), "missing", "config.toml")
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, bogus, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if out, err = runCLI(t, bogus, "config", "init", "--path", target); err == nil {
		t.Fatalf("expected error without --overwrite, got:\n%s", out)
	}

	out, err = runCLI(t, bogus, "config", "init", "--path", target, "--overwrite")
	if err != nil {
		t.Fatalf("config init --overwrite: %v\n%s", err, out)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestCLIConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	// validate reads the default config location, so point HOME at a
	// scratch dir holding a valid file.
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgDir := filepath.Join(home, ".config", "rosterforge")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	doc, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), doc, 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	requireContains(t, out, "Configuration valid")
}

func seedLedger(t *testing.T, env *cliTestEnv) {
	t.Helper()

	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.NewBundle(ctx, "run-1", "DK", filepath.Join(env.charactersDir, "DK")); err != nil {
		t.Fatalf("seed DK: %v", err)
	}
	failed, err := store.NewBundle(ctx, "run-1", "Yoshi", filepath.Join(env.charactersDir, "Yoshi"))
	if err != nil {
		t.Fatalf("seed Yoshi: %v", err)
	}
	failed.SetFailed("model archive unreadable")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("fail Yoshi: %v", err)
	}
}

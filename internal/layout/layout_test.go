package layout

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rosterforge/internal/faults"
)

func writePreset(t *testing.T, entries []any) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{"grid_files": entries})
	if err != nil {
		t.Fatalf("marshal preset: %v", err)
	}
	path := filepath.Join(t.TempDir(), "preset.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func blankGrid() []any {
	entries := make([]any, GridCount)
	return entries
}

func TestLoadPresetGridOrder(t *testing.T) {
	entries := blankGrid()
	entries[0] = "Mario"
	entries[3] = "Daisy"
	entries[21] = map[string]any{"type": "group", "size": 2, "slots": []any{"GoldMario", "MetalMario"}}
	entries[26] = "DK"

	l, err := LoadPreset(writePreset(t, entries))
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	want := []string{"Mario", "Daisy", "GoldMario", "MetalMario", "DK"}
	got := l.Characters()
	if len(got) != len(want) {
		t.Fatalf("characters = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("characters[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !l.Contains("GoldMario") {
		t.Fatal("expected GoldMario in roster")
	}
	if l.Position("DK") != 4 {
		t.Fatalf("Position(DK) = %d, want 4", l.Position("DK"))
	}
	if l.Position("Yoshi") != len(l.Slots()) {
		t.Fatal("absent character should sort last")
	}
}

func TestLoadPresetSkipsBlockedCells(t *testing.T) {
	entries := blankGrid()
	entries[40] = "Ghost"
	entries[47] = "Ghost"
	entries[5] = "TanukiMario"

	l, err := LoadPreset(writePreset(t, entries))
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if l.Contains("Ghost") {
		t.Fatal("blocked cells must be ignored")
	}
	if got := l.Characters(); len(got) != 1 || got[0] != "TanukiMario" {
		t.Fatalf("characters = %v", got)
	}
}

func TestLoadPresetAcceptsLegacyGridKey(t *testing.T) {
	entries := blankGrid()
	entries[0] = "Mario"
	data, err := json.Marshal(map[string]any{"grid": entries})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "preset.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if got := l.Characters(); len(got) != 1 || got[0] != "Mario" {
		t.Fatalf("characters = %v", got)
	}
}

func TestLoadPresetRejectsWrongLength(t *testing.T) {
	_, err := LoadPreset(writePreset(t, []any{"Mario", "Luigi"}))
	if !errors.Is(err, faults.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoadPresetRejectsMalformedCell(t *testing.T) {
	entries := blankGrid()
	entries[0] = map[string]any{"type": "mystery"}
	_, err := LoadPreset(writePreset(t, entries))
	if !errors.Is(err, faults.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoadPresetRejectsEmptyRoster(t *testing.T) {
	_, err := LoadPreset(writePreset(t, blankGrid()))
	if !errors.Is(err, faults.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestDefaultRoster(t *testing.T) {
	l := Default()
	chars := l.Characters()
	if len(chars) != 49 {
		t.Fatalf("default roster has %d characters, want 49", len(chars))
	}
	if chars[0] != "Mario" {
		t.Fatalf("first slot = %q, want Mario", chars[0])
	}
	for _, name := range []string{"MetalMario", "AnimalGirlA", "LinkBotw"} {
		if !l.Contains(name) {
			t.Fatalf("default roster missing group member %s", name)
		}
	}
}

func TestFromCharactersSkipsEmptyNames(t *testing.T) {
	l := FromCharacters([]string{"DK", "", "Yoshi"})
	if got := l.Characters(); len(got) != 2 || got[0] != "DK" || got[1] != "Yoshi" {
		t.Fatalf("characters = %v", got)
	}
}

func TestTextures(t *testing.T) {
	tex := Textures("DK")
	if tex.Select != "tc_Chara_DK^l" || tex.Edit != "tc_edChara_DK^l" || tex.Map != "tc_MapChara_DK^l" {
		t.Fatalf("unexpected textures: %+v", tex)
	}
}

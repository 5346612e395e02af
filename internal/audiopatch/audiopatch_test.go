package audiopatch_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"rosterforge/internal/audiopatch"
	"rosterforge/internal/bars"
	"rosterforge/internal/bundle"
	"rosterforge/internal/mapping"
	"rosterforge/internal/testsupport"
)

type fixture struct {
	donorDir string
	bundle   bundle.Bundle
	registry *mapping.Registry
	missing  []bundle.RoleStatus
}

func newFixture(t *testing.T, registry *mapping.Registry) *fixture {
	t.Helper()
	base := t.TempDir()
	donorDir := filepath.Join(base, "donors")
	bundleRoot := filepath.Join(base, "characters", "DK")
	for _, dir := range []string{donorDir, bundleRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	b := bundle.Bundle{Character: "DK", Root: bundleRoot}
	role, ok := registry.Template.RoleByName("race_voice")
	if !ok {
		t.Fatal("race_voice role missing from template")
	}
	return &fixture{
		donorDir: donorDir,
		bundle:   b,
		registry: registry,
		missing: []bundle.RoleStatus{{
			Role:    role,
			RelPath: role.PathFor("DK"),
		}},
	}
}

func (f *fixture) writeDonor(t *testing.T, section, name string, assets map[string][]byte) {
	t.Helper()
	dir := filepath.Join(f.donorDir, section)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), testsupport.BARSContainer(assets), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) writeSibling(t *testing.T, rel string, assets map[string][]byte) {
	t.Helper()
	path := f.bundle.AbsPath(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, testsupport.BARSContainer(assets), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testRegistry(t *testing.T, groups [][]string) *mapping.Registry {
	t.Helper()
	registry, err := mapping.Load(mapping.Paths{})
	if err != nil {
		t.Fatal(err)
	}
	registry.AudioMap = &mapping.AudioAssetMap{Sections: map[string]map[string]mapping.ContainerSpec{
		"Driver": {
			"Driver_DK.bars": {
				Prefix: "DK",
				Assets: []string{"VO_DK_Jump", "VO_DK_Select"},
			},
			"Driver_MRO.bars": {
				Prefix: "MRO",
				Assets: []string{"VO_MRO_Jump", "VO_MRO_Select"},
			},
		},
	}}
	registry.Groups = mapping.NewGroups(groups)
	return registry
}

func defaultGroups() [][]string {
	return [][]string{
		{"VO_DK_Jump", "VO_MRO_Jump"},
		{"VO_DK_Select", "VO_MRO_Select"},
	}
}

func TestPatchClonesDonorContainer(t *testing.T) {
	registry := testRegistry(t, defaultGroups())
	f := newFixture(t, registry)
	f.writeDonor(t, "Driver", "Driver_MRO.bars", map[string][]byte{
		"VO_MRO_Jump":   []byte("library-jump"),
		"VO_MRO_Select": []byte("library-select"),
	})

	patcher := audiopatch.New(f.donorDir, registry, nil)
	result, err := patcher.Patch(context.Background(), f.bundle, f.missing)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(result.Created) != 1 || len(result.Unresolved) != 0 || len(result.Gaps) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	data, err := os.ReadFile(f.bundle.AbsPath("Audio/Driver/Driver_DK.bars"))
	if err != nil {
		t.Fatalf("read created container: %v", err)
	}
	file, err := bars.Parse(data)
	if err != nil {
		t.Fatalf("parse created container: %v", err)
	}
	payload, ok := file.Payload("VO_DK_Jump")
	if !ok || !bytes.Equal(payload, []byte("library-jump")) {
		t.Fatalf("unexpected jump payload: %q ok=%v", payload, ok)
	}
	payload, ok = file.Payload("VO_DK_Select")
	if !ok || !bytes.Equal(payload, []byte("library-select")) {
		t.Fatalf("unexpected select payload: %q ok=%v", payload, ok)
	}
}

func TestPatchPrefersSameBundleAlternates(t *testing.T) {
	registry := testRegistry(t, defaultGroups())
	f := newFixture(t, registry)
	f.writeDonor(t, "Driver", "Driver_MRO.bars", map[string][]byte{
		"VO_MRO_Jump":   []byte("library-jump"),
		"VO_MRO_Select": []byte("library-select"),
	})
	f.writeSibling(t, "Audio/DriverMenu/MenuDriver_DK.bars", map[string][]byte{
		"VO_DK_Jump": []byte("sibling-jump"),
	})

	patcher := audiopatch.New(f.donorDir, registry, nil)
	result, err := patcher.Patch(context.Background(), f.bundle, f.missing)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("expected created container, got %+v", result)
	}

	data, _ := os.ReadFile(f.bundle.AbsPath("Audio/Driver/Driver_DK.bars"))
	file, err := bars.Parse(data)
	if err != nil {
		t.Fatalf("parse created container: %v", err)
	}
	payload, _ := file.Payload("VO_DK_Jump")
	if !bytes.Equal(payload, []byte("sibling-jump")) {
		t.Fatalf("expected sibling payload preferred, got %q", payload)
	}
	payload, _ = file.Payload("VO_DK_Select")
	if !bytes.Equal(payload, []byte("library-select")) {
		t.Fatalf("expected library fallback for select, got %q", payload)
	}
}

func TestPatchGroupSubstituteSelection(t *testing.T) {
	// voice_01 absent everywhere, voice_02 present in the donor library: the
	// patcher must pick voice_02 and the container must materialize.
	registry, err := mapping.Load(mapping.Paths{})
	if err != nil {
		t.Fatal(err)
	}
	registry.AudioMap = &mapping.AudioAssetMap{Sections: map[string]map[string]mapping.ContainerSpec{
		"Driver": {
			"Driver_DK.bars":    {Prefix: "DK", Assets: []string{"voice_01"}},
			"Driver_Donor.bars": {Prefix: "MRO", Assets: []string{"voice_02"}},
		},
	}}
	registry.Groups = mapping.NewGroups([][]string{{"voice_01", "voice_02"}})

	f := newFixture(t, registry)
	f.writeDonor(t, "Driver", "Driver_Donor.bars", map[string][]byte{
		"voice_02": []byte("take-two"),
	})

	patcher := audiopatch.New(f.donorDir, registry, nil)
	result, err := patcher.Patch(context.Background(), f.bundle, f.missing)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(result.Created) != 1 || len(result.Unresolved) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPatchAllOrNothing(t *testing.T) {
	registry := testRegistry(t, [][]string{{"VO_DK_Jump", "VO_MRO_Jump"}})
	f := newFixture(t, registry)
	// Donor only carries the jump clip; select has no usable group member.
	f.writeDonor(t, "Driver", "Driver_MRO.bars", map[string][]byte{
		"VO_MRO_Jump":   []byte("library-jump"),
		"VO_MRO_Select": []byte("library-select"),
	})
	registry.AudioMap.Sections["Driver"]["Driver_MRO.bars"] = mapping.ContainerSpec{
		Prefix: "MRO",
		Assets: []string{"VO_MRO_Jump"},
	}

	patcher := audiopatch.New(f.donorDir, registry, nil)
	result, err := patcher.Patch(context.Background(), f.bundle, f.missing)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(result.Created) != 0 {
		t.Fatalf("expected no container written, got %+v", result.Created)
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0].Asset != "VO_DK_Select" {
		t.Fatalf("unexpected unresolved: %+v", result.Unresolved)
	}
	if _, err := os.Stat(f.bundle.AbsPath("Audio/Driver/Driver_DK.bars")); !os.IsNotExist(err) {
		t.Fatalf("expected no partial container on disk, stat err=%v", err)
	}
}

func TestPatchDeterministicAcrossRuns(t *testing.T) {
	build := func(t *testing.T) []byte {
		registry := testRegistry(t, defaultGroups())
		f := newFixture(t, registry)
		f.writeDonor(t, "Driver", "Driver_MRO.bars", map[string][]byte{
			"VO_MRO_Jump":   []byte("library-jump"),
			"VO_MRO_Select": []byte("library-select"),
		})
		patcher := audiopatch.New(f.donorDir, registry, nil)
		if _, err := patcher.Patch(context.Background(), f.bundle, f.missing); err != nil {
			t.Fatalf("Patch: %v", err)
		}
		data, err := os.ReadFile(f.bundle.AbsPath("Audio/Driver/Driver_DK.bars"))
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	first := build(t)
	second := build(t)
	if !bytes.Equal(first, second) {
		t.Fatal("expected identical containers across runs")
	}
}

func TestPatchWithoutAudioDataReportsGaps(t *testing.T) {
	registry, err := mapping.Load(mapping.Paths{})
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, registry)

	patcher := audiopatch.New(f.donorDir, registry, nil)
	result, err := patcher.Patch(context.Background(), f.bundle, f.missing)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(result.Gaps) != 1 || result.Gaps[0].Reason != "no audio mapping data loaded" {
		t.Fatalf("unexpected gaps: %+v", result.Gaps)
	}
}

func TestPatchUnknownContainerReportsGap(t *testing.T) {
	registry := testRegistry(t, defaultGroups())
	delete(registry.AudioMap.Sections["Driver"], "Driver_DK.bars")
	f := newFixture(t, registry)

	patcher := audiopatch.New(f.donorDir, registry, nil)
	result, err := patcher.Patch(context.Background(), f.bundle, f.missing)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if len(result.Gaps) != 1 || result.Gaps[0].Reason != "container not in audio asset map" {
		t.Fatalf("unexpected gaps: %+v", result.Gaps)
	}
}

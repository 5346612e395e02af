package preflight

import (
	"rosterforge/internal/config"
)

// minStagingSpace is the least free space a completion run may start
// with. Staged trees duplicate every bundle plus rebuilt archives.
const minStagingSpace uint64 = 512 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks for optional inputs only run when the path is configured.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryReadable("Character repository", cfg.Paths.CharactersDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, minStagingSpace))

	if cfg.Paths.DonorAudioDir != "" {
		results = append(results, CheckDirectoryReadable("Donor audio library", cfg.Paths.DonorAudioDir))
	}
	if cfg.Paths.BoneDir != "" {
		results = append(results, CheckDirectoryReadable("Bone reference directory", cfg.Paths.BoneDir))
	}
	if cfg.IconMergeEnabled() {
		results = append(results, CheckFileReadable("Common UI archive", cfg.Paths.CommonArchivePath))
		results = append(results, CheckFileReadable("Menu UI archive", cfg.Paths.MenuArchivePath))
	}
	for _, doc := range []struct{ name, path string }{
		{"Slot template", cfg.Mappings.SlotTemplatePath},
		{"Audio asset map", cfg.Mappings.AudioAssetMapPath},
		{"Bfwav groups", cfg.Mappings.BfwavGroupsPath},
		{"Layout preset", cfg.Mappings.LayoutPresetPath},
	} {
		if doc.path != "" {
			results = append(results, CheckFileReadable(doc.name, doc.path))
		}
	}

	return results
}

// AllPassed reports whether every check in results succeeded.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

package mapping

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"rosterforge/internal/bars"
	"rosterforge/internal/faults"
)

var prefixPattern = regexp.MustCompile(`(?:VO|SE)_([A-Z0-9]+)`)

// ScanResult reports what a library scan found.
type ScanResult struct {
	Map     *AudioAssetMap
	Scanned int
	Skipped []string
}

// ScanAudioLibrary rebuilds the audio asset map by walking the donor library
// for sound containers and reading their metadata names. Prefixes recorded in
// a prior map are preserved; new containers get a prefix derived from their
// asset naming convention. Unreadable containers are skipped and reported,
// not fatal.
func ScanAudioLibrary(root string, prior *AudioAssetMap) (*ScanResult, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, faults.Wrap(faults.ErrConfig, "mapping", "scan audio library", root, err)
	}

	var containerPaths []string
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".bars") {
			containerPaths = append(containerPaths, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, faults.Wrap(faults.ErrConfig, "mapping", "scan audio library", root, walkErr)
	}
	sort.Strings(containerPaths)

	result := &ScanResult{
		Map: &AudioAssetMap{Sections: make(map[string]map[string]ContainerSpec)},
	}

	for _, path := range containerPaths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, faults.Wrap(faults.ErrConfig, "mapping", "scan audio library", path, err)
		}
		section := filepath.ToSlash(filepath.Dir(rel))
		name := filepath.Base(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		file, err := bars.Parse(data)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", rel, err))
			continue
		}

		names := file.Names()
		spec := ContainerSpec{Meta: names, Assets: names}
		if prior != nil {
			if _, priorSpec, ok := prior.Lookup(name); ok && priorSpec.Prefix != "" {
				spec.Prefix = priorSpec.Prefix
			}
		}
		if spec.Prefix == "" {
			spec.Prefix = derivePrefix(names)
		}

		if result.Map.Sections[section] == nil {
			result.Map.Sections[section] = make(map[string]ContainerSpec)
		}
		result.Map.Sections[section][name] = spec
		result.Scanned++
	}

	return result, nil
}

// derivePrefix picks the most common character tag in the asset names.
func derivePrefix(names []string) string {
	counts := make(map[string]int)
	for _, name := range names {
		if match := prefixPattern.FindStringSubmatch(name); match != nil {
			counts[match[1]]++
		}
	}
	best := ""
	for _, tag := range sortedKeys(counts) {
		if best == "" || counts[tag] > counts[best] {
			best = tag
		}
	}
	return best
}

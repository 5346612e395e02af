package mapping

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"rosterforge/internal/faults"
)

// ContainerSpec describes one sound container: its derived character prefix
// (e.g. "MRO") and the ordered asset names it must contain.
type ContainerSpec struct {
	Prefix string   `json:"prefix"`
	Meta   []string `json:"amta"`
	Assets []string `json:"bfwav"`
}

// AudioAssetMap maps section (relative directory under the donor library) to
// container filename to its spec.
type AudioAssetMap struct {
	Sections map[string]map[string]ContainerSpec
}

// LoadAudioAssetMap reads the generated audio asset map document.
func LoadAudioAssetMap(path string) (*AudioAssetMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, faults.Wrap(faults.ErrConfig, "mapping", "load audio asset map", path, err)
	}

	var sections map[string]map[string]ContainerSpec
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, faults.Wrap(faults.ErrConfig, "mapping", "parse audio asset map", path, err)
	}
	return &AudioAssetMap{Sections: sections}, nil
}

// Save writes the map as indented JSON, the format scan-audio regenerates.
func (m *AudioAssetMap) Save(path string) error {
	data, err := json.MarshalIndent(m.Sections, "", "  ")
	if err != nil {
		return faults.Wrap(faults.ErrConfig, "mapping", "encode audio asset map", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return faults.Wrap(faults.ErrConfig, "mapping", "write audio asset map", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return faults.Wrap(faults.ErrConfig, "mapping", "write audio asset map", path, err)
	}
	return nil
}

// Lookup finds a container spec by bare filename, searching every section.
// Section iteration is not relied on for precedence: a filename is expected
// to appear in exactly one section, and the first match in sorted section
// order wins when the data violates that.
func (m *AudioAssetMap) Lookup(containerName string) (section string, spec ContainerSpec, ok bool) {
	if m == nil {
		return "", ContainerSpec{}, false
	}
	for _, sectionName := range sortedKeys(m.Sections) {
		if found, exists := m.Sections[sectionName][containerName]; exists {
			return sectionName, found, true
		}
	}
	return "", ContainerSpec{}, false
}

// ContainerNames returns every container filename in the map, sorted.
func (m *AudioAssetMap) ContainerNames() []string {
	if m == nil {
		return nil
	}
	var names []string
	for _, sectionName := range sortedKeys(m.Sections) {
		names = append(names, sortedKeys(m.Sections[sectionName])...)
	}
	return names
}

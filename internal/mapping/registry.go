// Package mapping loads the data documents that drive asset completion: the
// slot template (role name to filename pattern), the audio asset map
// (container to waveform asset names), and the bfwav equivalence groups. The
// registry is immutable after load so pipeline workers share it without
// locking.
package mapping

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"rosterforge/internal/faults"
)

// placeholder is the character-name substitution token in role patterns.
const placeholder = "{name}"

// RoleKind classifies a role for pipeline dispatch.
type RoleKind string

const (
	KindModel RoleKind = "model"
	KindAudio RoleKind = "audio"
	KindIcon  RoleKind = "icon"
)

// Role is one named requirement slot in the template.
type Role struct {
	Name    string   `toml:"name"`
	Pattern string   `toml:"pattern"`
	Kind    RoleKind `toml:"kind"`
}

// PathFor substitutes the character name into the role's pattern. The result
// is a slash-separated path relative to the bundle root.
func (r Role) PathFor(character string) string {
	return strings.ReplaceAll(r.Pattern, placeholder, character)
}

// ContainerName returns the bare filename an audio role maps to for a
// character, used to look the container up in the audio asset map.
func (r Role) ContainerName(character string) string {
	return path.Base(r.PathFor(character))
}

// Template is the ordered set of roles every bundle is resolved against.
type Template struct {
	Roles []Role
}

// RoleByName returns the template entry with the given role name.
func (t Template) RoleByName(name string) (Role, bool) {
	for _, role := range t.Roles {
		if role.Name == name {
			return role, true
		}
	}
	return Role{}, false
}

// AudioRoles returns the template's audio roles in declared order.
func (t Template) AudioRoles() []Role {
	var roles []Role
	for _, role := range t.Roles {
		if role.Kind == KindAudio {
			roles = append(roles, role)
		}
	}
	return roles
}

// Paths locates the three mapping documents. Empty fields load defaults
// (slot template) or degrade the owning subsystem (audio map, groups).
type Paths struct {
	SlotTemplate  string
	AudioAssetMap string
	BfwavGroups   string
}

// Registry is the loaded, read-only mapping data.
type Registry struct {
	Template Template
	AudioMap *AudioAssetMap
	Groups   *Groups

	// Warnings lists tolerated data-quality issues found at load time, such
	// as group members that appear in no container's asset list.
	Warnings []string
}

// HasAudioData reports whether the audio map and groups are both loaded. When
// false the audio patcher only reports missing containers and never patches.
func (r *Registry) HasAudioData() bool {
	return r.AudioMap != nil && r.Groups != nil
}

// Load reads the mapping documents. A missing optional document is not an
// error; a malformed one is.
func Load(paths Paths) (*Registry, error) {
	registry := &Registry{}

	template, err := loadTemplate(paths.SlotTemplate)
	if err != nil {
		return nil, err
	}
	registry.Template = template

	if paths.AudioAssetMap != "" {
		audioMap, err := LoadAudioAssetMap(paths.AudioAssetMap)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		registry.AudioMap = audioMap
	}

	if paths.BfwavGroups != "" {
		groups, err := LoadGroups(paths.BfwavGroups)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		registry.Groups = groups
	}

	if registry.AudioMap != nil && registry.Groups != nil {
		registry.Warnings = orphanGroupMembers(registry.AudioMap, registry.Groups)
	}

	return registry, nil
}

func loadTemplate(path string) (Template, error) {
	if path == "" {
		return defaultTemplate(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultTemplate(), nil
		}
		return Template{}, faults.Wrap(faults.ErrConfig, "mapping", "load slot template", path, err)
	}

	var doc struct {
		Roles []Role `toml:"role"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Template{}, faults.Wrap(faults.ErrConfig, "mapping", "parse slot template", path, err)
	}
	if len(doc.Roles) == 0 {
		return Template{}, faults.Wrap(faults.ErrConfig, "mapping", "parse slot template", "no [[role]] entries in "+path, nil)
	}

	template := Template{Roles: doc.Roles}
	if err := validateTemplate(template); err != nil {
		return Template{}, err
	}
	return template, nil
}

func validateTemplate(template Template) error {
	seen := make(map[string]struct{}, len(template.Roles))
	for _, role := range template.Roles {
		if role.Name == "" {
			return faults.Wrap(faults.ErrConfig, "mapping", "validate slot template", "role with empty name", nil)
		}
		if _, dup := seen[role.Name]; dup {
			return faults.Wrap(faults.ErrConfig, "mapping", "validate slot template", fmt.Sprintf("duplicate role %q", role.Name), nil)
		}
		seen[role.Name] = struct{}{}

		if count := strings.Count(role.Pattern, placeholder); count != 1 {
			return faults.Wrap(faults.ErrConfig, "mapping", "validate slot template",
				fmt.Sprintf("role %q pattern must contain exactly one %s placeholder, found %d", role.Name, placeholder, count), nil)
		}
		switch role.Kind {
		case KindModel, KindAudio, KindIcon:
		default:
			return faults.Wrap(faults.ErrConfig, "mapping", "validate slot template",
				fmt.Sprintf("role %q has unknown kind %q", role.Name, role.Kind), nil)
		}
	}
	return nil
}

// defaultTemplate is the built-in minimal role set used when no slot template
// document exists.
func defaultTemplate() Template {
	return Template{Roles: []Role{
		{Name: "driver_model", Pattern: "Driver/{name}.szs", Kind: KindModel},
		{Name: "race_voice", Pattern: "Audio/Driver/Driver_{name}.bars", Kind: KindAudio},
		{Name: "menu_voice", Pattern: "Audio/DriverMenu/MenuDriver_{name}.bars", Kind: KindAudio},
		{Name: "select_icon", Pattern: "UI/cmn/tc_Chara_{name}^l.png", Kind: KindIcon},
		{Name: "edit_icon", Pattern: "UI/cmn/tc_edChara_{name}^l.png", Kind: KindIcon},
		{Name: "map_icon", Pattern: "UI/cmn/tc_MapChara_{name}^l.png", Kind: KindIcon},
	}}
}

func orphanGroupMembers(audioMap *AudioAssetMap, groups *Groups) []string {
	known := make(map[string]struct{})
	for _, section := range audioMap.Sections {
		for _, spec := range section {
			for _, asset := range spec.Assets {
				known[asset] = struct{}{}
			}
		}
	}

	var warnings []string
	for _, group := range groups.Declared {
		for _, member := range group {
			if _, ok := known[member]; !ok {
				warnings = append(warnings, fmt.Sprintf("group member %q appears in no container asset list", member))
			}
		}
	}
	return warnings
}

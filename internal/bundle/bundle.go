// Package bundle models a character's on-disk asset tree and resolves it
// against the slot template to produce a missing report.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"rosterforge/internal/faults"
	"rosterforge/internal/mapping"
)

// Bundle is one character's asset tree.
type Bundle struct {
	Character string
	Root      string
}

// AbsPath resolves a template-relative path inside the bundle.
func (b Bundle) AbsPath(rel string) string {
	return filepath.Join(b.Root, filepath.FromSlash(rel))
}

// RoleStatus records the resolution outcome for one role.
type RoleStatus struct {
	Role    mapping.Role
	RelPath string
	Present bool
}

// Report is the outcome of resolving one bundle: template roles in declared
// order with their expected paths and presence.
type Report struct {
	Character string
	Statuses  []RoleStatus
}

// Missing returns the roles whose expected file is absent, in template order.
func (r Report) Missing() []RoleStatus {
	var missing []RoleStatus
	for _, status := range r.Statuses {
		if !status.Present {
			missing = append(missing, status)
		}
	}
	return missing
}

// MissingOfKind filters the missing roles by kind.
func (r Report) MissingOfKind(kind mapping.RoleKind) []RoleStatus {
	var missing []RoleStatus
	for _, status := range r.Missing() {
		if status.Role.Kind == kind {
			missing = append(missing, status)
		}
	}
	return missing
}

// Complete reports whether every role resolved.
func (r Report) Complete() bool {
	return len(r.Missing()) == 0
}

// Discover builds bundles for the requested characters under the characters
// root. Unknown characters (no folder) are an error: the layout references a
// bundle the library does not have.
func Discover(root string, characters []string) ([]Bundle, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, faults.Wrap(faults.ErrConfig, "bundle", "discover", "characters directory "+root, err)
	}

	bundles := make([]Bundle, 0, len(characters))
	for _, character := range characters {
		dir := filepath.Join(root, character)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, faults.Wrap(faults.ErrConfig, "bundle", "discover",
				fmt.Sprintf("no bundle folder for character %q under %s", character, root), nil)
		}
		bundles = append(bundles, Bundle{Character: character, Root: dir})
	}
	return bundles, nil
}

// ListCharacters returns every character folder under the root, sorted.
func ListCharacters(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, faults.Wrap(faults.ErrConfig, "bundle", "list characters", root, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Resolve compares the bundle against the template. Pure and deterministic:
// repeated calls on an unchanged tree yield identical reports.
func Resolve(b Bundle, registry *mapping.Registry) Report {
	report := Report{
		Character: b.Character,
		Statuses:  make([]RoleStatus, 0, len(registry.Template.Roles)),
	}
	for _, role := range registry.Template.Roles {
		rel := role.PathFor(b.Character)
		info, err := os.Stat(b.AbsPath(rel))
		report.Statuses = append(report.Statuses, RoleStatus{
			Role:    role,
			RelPath: rel,
			Present: err == nil && !info.IsDir(),
		})
	}
	return report
}

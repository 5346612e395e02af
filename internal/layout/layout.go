// Package layout models the character roster grid exported by the
// placement UI. The grid fixes both the set of characters a run covers
// and the order bundles appear in reports, and it carries the mapping
// from a character to the icon texture names inside the shared UI
// archives.
package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"rosterforge/internal/faults"
)

const (
	// GridCols and GridRows describe the character select grid.
	GridCols  = 8
	GridRows  = 6
	GridCount = GridCols * GridRows
)

// blockedIndices are grid cells that never hold a character.
var blockedIndices = map[int]struct{}{40: {}, 47: {}}

// Slot is one occupied position in the roster, in grid order. Group
// cells contribute one Slot per member.
type Slot struct {
	Index     int
	Character string
}

// IconTextures names the atlas textures a character's icons replace.
type IconTextures struct {
	Select string
	Edit   string
	Map    string
}

// Layout is an ordered roster. The order is the grid order of the
// preset (or default table) it was built from.
type Layout struct {
	slots []Slot
	seen  map[string]struct{}
}

// Characters returns the roster in grid order, duplicates removed on
// first occurrence.
func (l *Layout) Characters() []string {
	out := make([]string, 0, len(l.slots))
	seen := make(map[string]struct{}, len(l.slots))
	for _, s := range l.slots {
		if _, ok := seen[s.Character]; ok {
			continue
		}
		seen[s.Character] = struct{}{}
		out = append(out, s.Character)
	}
	return out
}

// Slots returns every occupied grid position in order.
func (l *Layout) Slots() []Slot {
	return append([]Slot(nil), l.slots...)
}

// Contains reports whether the roster includes the character.
func (l *Layout) Contains(character string) bool {
	_, ok := l.seen[character]
	return ok
}

// Position returns the grid order rank of a character, or len(slots)
// when absent so absent names sort last.
func (l *Layout) Position(character string) int {
	for i, s := range l.slots {
		if s.Character == character {
			return i
		}
	}
	return len(l.slots)
}

// Textures returns the atlas texture names for a character's icons.
func Textures(character string) IconTextures {
	return IconTextures{
		Select: "tc_Chara_" + character + "^l",
		Edit:   "tc_edChara_" + character + "^l",
		Map:    "tc_MapChara_" + character + "^l",
	}
}

// FromCharacters builds a layout from an explicit name list, keeping
// the given order.
func FromCharacters(names []string) *Layout {
	l := &Layout{seen: make(map[string]struct{}, len(names))}
	for i, name := range names {
		if name == "" {
			continue
		}
		l.slots = append(l.slots, Slot{Index: i, Character: name})
		l.seen[name] = struct{}{}
	}
	return l
}

// Default returns the stock roster grid.
func Default() *Layout {
	indices := make([]int, 0, len(defaultSlotNames))
	for idx := range defaultSlotNames {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	l := &Layout{seen: make(map[string]struct{})}
	for _, idx := range indices {
		for _, name := range defaultSlotNames[idx] {
			l.slots = append(l.slots, Slot{Index: idx, Character: name})
			l.seen[name] = struct{}{}
		}
	}
	return l
}

// presetDocument is the JSON shape the placement UI exports. Older
// exports used "grid" for the same array.
type presetDocument struct {
	GridFiles []json.RawMessage `json:"grid_files"`
	Grid      []json.RawMessage `json:"grid"`
}

type presetGroup struct {
	Type  string    `json:"type"`
	Slots []*string `json:"slots"`
}

// LoadPreset reads an exported roster preset. Null and blocked cells
// are skipped; group cells contribute their slot members in order.
func LoadPreset(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	var doc presetDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, faults.Wrap(faults.ErrConfig, "layout", "parse preset", path, err)
	}
	entries := doc.GridFiles
	if len(entries) == 0 {
		entries = doc.Grid
	}
	if len(entries) != GridCount {
		return nil, faults.Wrap(faults.ErrConfig, "layout", "validate preset",
			fmt.Sprintf("%s: expected %d grid entries, got %d", path, GridCount, len(entries)), nil)
	}

	l := &Layout{seen: make(map[string]struct{})}
	for idx, raw := range entries {
		if _, blocked := blockedIndices[idx]; blocked {
			continue
		}
		names, err := decodePresetEntry(raw)
		if err != nil {
			return nil, faults.Wrap(faults.ErrConfig, "layout", "parse preset",
				fmt.Sprintf("%s: entry %d", path, idx), err)
		}
		for _, name := range names {
			l.slots = append(l.slots, Slot{Index: idx, Character: name})
			l.seen[name] = struct{}{}
		}
	}
	if len(l.slots) == 0 {
		return nil, faults.Wrap(faults.ErrConfig, "layout", "validate preset", path+": no characters placed", nil)
	}
	return l, nil
}

func decodePresetEntry(raw json.RawMessage) ([]string, error) {
	var name *string
	if err := json.Unmarshal(raw, &name); err == nil {
		if name == nil || *name == "" {
			return nil, nil
		}
		return []string{*name}, nil
	}
	var group presetGroup
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil, fmt.Errorf("unrecognized cell: %w", err)
	}
	if group.Type != "group" {
		return nil, fmt.Errorf("unrecognized cell type %q", group.Type)
	}
	var names []string
	for _, member := range group.Slots {
		if member == nil || *member == "" {
			continue
		}
		names = append(names, *member)
	}
	return names, nil
}

// Package boneinject injects canonical skeleton bones into packed model
// archives. A model archive is a Yaz0-compressed SARC holding named model
// sub-resources; each sub-resource carries a bone table the injector appends
// to, skipping bones already present so a second run changes nothing.
package boneinject

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"rosterforge/internal/faults"
)

// Bone is one canonical skeleton record.
type Bone struct {
	Name      string    `toml:"name"`
	Parent    int16     `toml:"parent"`
	Scale     []float32 `toml:"scale"`
	Rotate    []float32 `toml:"rotate"`
	Translate []float32 `toml:"translate"`
}

// BoneSet holds the canonical bone hierarchies keyed by model name,
// immutable after load.
type BoneSet struct {
	byModel map[string][]Bone
}

// LoadBoneSet reads one bone reference document per model from the directory.
// A missing directory yields an empty set: injection degrades to a no-op.
func LoadBoneSet(dir string) (*BoneSet, error) {
	set := &BoneSet{byModel: make(map[string][]Bone)}
	if dir == "" {
		return set, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, faults.Wrap(faults.ErrConfig, "boneinject", "load bone reference", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".toml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, faults.Wrap(faults.ErrConfig, "boneinject", "load bone reference", path, err)
		}

		var doc struct {
			Bones []Bone `toml:"bone"`
		}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, faults.Wrap(faults.ErrConfig, "boneinject", "parse bone reference", path, err)
		}
		if err := validateBones(doc.Bones, path); err != nil {
			return nil, err
		}

		model := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		set.byModel[model] = doc.Bones
	}
	return set, nil
}

// NewBoneSet builds a set from in-memory hierarchies.
func NewBoneSet(byModel map[string][]Bone) *BoneSet {
	set := &BoneSet{byModel: make(map[string][]Bone, len(byModel))}
	for model, bones := range byModel {
		set.byModel[model] = bones
	}
	return set
}

// BonesFor returns the canonical hierarchy for a model name in declared order.
func (s *BoneSet) BonesFor(model string) ([]Bone, bool) {
	if s == nil {
		return nil, false
	}
	bones, ok := s.byModel[model]
	return bones, ok
}

// Models returns the model names with canonical hierarchies, sorted.
func (s *BoneSet) Models() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.byModel))
	for name := range s.byModel {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether the set holds no hierarchies.
func (s *BoneSet) Empty() bool {
	return s == nil || len(s.byModel) == 0
}

func validateBones(bones []Bone, path string) error {
	seen := make(map[string]struct{}, len(bones))
	for _, bone := range bones {
		if bone.Name == "" {
			return faults.Wrap(faults.ErrConfig, "boneinject", "validate bone reference", path+": bone with empty name", nil)
		}
		if _, dup := seen[bone.Name]; dup {
			return faults.Wrap(faults.ErrConfig, "boneinject", "validate bone reference",
				fmt.Sprintf("%s: duplicate bone %q", path, bone.Name), nil)
		}
		seen[bone.Name] = struct{}{}
	}
	return nil
}

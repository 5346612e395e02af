// Package audiopatch synthesizes missing sound containers by cloning
// equivalent waveform payloads from donor containers. Donor selection walks
// the asset's equivalence group in declared order, preferring the bundle's
// own sibling containers over the canonical library, so the same inputs
// always pick the same donor.
package audiopatch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rosterforge/internal/bars"
	"rosterforge/internal/bundle"
	"rosterforge/internal/fileutil"
	"rosterforge/internal/logging"
	"rosterforge/internal/mapping"
)

// Patcher clones donor audio into newly constructed containers.
type Patcher struct {
	donorDir string
	registry *mapping.Registry
	log      *slog.Logger

	containers map[string][]byte
	assetIndex map[string][]donorRef
}

type donorRef struct {
	section string
	name    string
}

// Gap records an audio role that could not be patched at all.
type Gap struct {
	Role      string
	Container string
	Reason    string
}

// Unresolved records one required asset with no usable group member.
type Unresolved struct {
	Role      string
	Container string
	Asset     string
}

// Created records one successfully written container.
type Created struct {
	Role    string
	RelPath string
	Assets  int
}

// Result is the outcome of patching one bundle's missing audio roles.
type Result struct {
	Created    []Created
	Gaps       []Gap
	Unresolved []Unresolved
}

// New builds a patcher over the canonical donor library.
func New(donorDir string, registry *mapping.Registry, log *slog.Logger) *Patcher {
	if log == nil {
		log = logging.NewNop()
	}
	return &Patcher{
		donorDir:   donorDir,
		registry:   registry,
		log:        logging.NewComponentLogger(log, "audiopatch"),
		containers: make(map[string][]byte),
		assetIndex: buildAssetIndex(registry.AudioMap),
	}
}

// Patch attempts to construct every missing audio container for the bundle.
// Containers are all-or-nothing: a container with any unresolved required
// asset is not written and its role stays missing.
func (p *Patcher) Patch(ctx context.Context, b bundle.Bundle, missing []bundle.RoleStatus) (Result, error) {
	var result Result

	if !p.registry.HasAudioData() {
		for _, status := range missing {
			result.Gaps = append(result.Gaps, Gap{
				Role:      status.Role.Name,
				Container: status.Role.ContainerName(b.Character),
				Reason:    "no audio mapping data loaded",
			})
		}
		return result, nil
	}

	siblings, err := listSiblingContainers(b, missing)
	if err != nil {
		return result, err
	}

	for _, status := range missing {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		containerName := status.Role.ContainerName(b.Character)

		section, spec, ok := p.registry.AudioMap.Lookup(containerName)
		if !ok {
			result.Gaps = append(result.Gaps, Gap{
				Role:      status.Role.Name,
				Container: containerName,
				Reason:    "container not in audio asset map",
			})
			continue
		}

		template, err := p.structuralTemplate(section, containerName, spec)
		if err != nil {
			result.Gaps = append(result.Gaps, Gap{
				Role:      status.Role.Name,
				Container: containerName,
				Reason:    err.Error(),
			})
			continue
		}

		payloads := make(map[string][]byte, len(spec.Assets))
		var unresolved []Unresolved
		for _, asset := range spec.Assets {
			payload, donor, ok := p.resolvePayload(asset, siblings)
			if !ok {
				unresolved = append(unresolved, Unresolved{
					Role:      status.Role.Name,
					Container: containerName,
					Asset:     asset,
				})
				continue
			}
			payloads[asset] = payload
			p.log.Debug("resolved donor asset",
				logging.String("container", containerName),
				logging.String("asset", asset),
				logging.String("donor", donor))
		}
		if len(unresolved) > 0 {
			result.Unresolved = append(result.Unresolved, unresolved...)
			p.log.Warn("container skipped, unresolved assets",
				logging.String("container", containerName),
				logging.Int("unresolved", len(unresolved)))
			continue
		}

		for _, asset := range spec.Assets {
			if err := template.ReplacePayload(asset, payloads[asset]); err != nil {
				return result, fmt.Errorf("replace payload %s in %s: %w", asset, containerName, err)
			}
		}

		dest := b.AbsPath(status.RelPath)
		if err := fileutil.WriteAtomic(dest, template.Encode()); err != nil {
			return result, fmt.Errorf("write container %s: %w", containerName, err)
		}
		result.Created = append(result.Created, Created{
			Role:    status.Role.Name,
			RelPath: status.RelPath,
			Assets:  len(spec.Assets),
		})
		p.log.Info("container created",
			logging.String("container", containerName),
			logging.Int("assets", len(spec.Assets)))
	}

	return result, nil
}

// structuralTemplate produces a parse tree whose entries match the target
// container's required assets. The canonical library's own copy of the
// container is preferred; otherwise another container from the same section
// is cloned with its entry names prefix-swapped to the target's.
func (p *Patcher) structuralTemplate(section, containerName string, spec mapping.ContainerSpec) (*bars.File, error) {
	if file, err := p.parseDonor(section, containerName); err == nil {
		return file, nil
	}

	sectionSpecs := p.registry.AudioMap.Sections[section]
	for _, donorName := range sortedNames(sectionSpecs) {
		if donorName == containerName {
			continue
		}
		donorSpec := sectionSpecs[donorName]
		file, err := p.parseDonor(section, donorName)
		if err != nil {
			continue
		}
		for _, name := range file.Names() {
			target := swapPrefix(name, donorSpec.Prefix, spec.Prefix)
			if target == name || file.HasEntry(target) {
				continue
			}
			if err := file.RenameEntry(name, target); err != nil {
				return nil, fmt.Errorf("rename template entry %s: %w", name, err)
			}
		}
		p.renameGroupEquivalents(file, spec.Assets)
		if hasAllEntries(file, spec.Assets) {
			return file, nil
		}
	}
	return nil, fmt.Errorf("no structural template for %s in section %s", containerName, section)
}

// renameGroupEquivalents fills remaining required entry names by renaming a
// template entry whose name shares the required asset's equivalence group.
func (p *Patcher) renameGroupEquivalents(file *bars.File, assets []string) {
	required := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		required[asset] = struct{}{}
	}
	for _, asset := range assets {
		if file.HasEntry(asset) {
			continue
		}
		members, ok := p.registry.Groups.MembersOf(asset)
		if !ok {
			continue
		}
		for _, member := range members {
			if member == asset {
				continue
			}
			if _, alsoRequired := required[member]; alsoRequired {
				continue
			}
			if file.HasEntry(member) {
				_ = file.RenameEntry(member, asset)
				break
			}
		}
	}
}

// resolvePayload finds donor bytes for a required asset: the asset's own name
// and then its group members in declared order, first from the bundle's
// sibling containers, then from the canonical library.
func (p *Patcher) resolvePayload(asset string, siblings []*bars.File) ([]byte, string, bool) {
	candidates := []string{asset}
	if members, ok := p.registry.Groups.MembersOf(asset); ok {
		for _, member := range members {
			if member != asset {
				candidates = append(candidates, member)
			}
		}
	}

	for _, sibling := range siblings {
		for _, candidate := range candidates {
			if payload, ok := sibling.Payload(candidate); ok {
				return payload, "bundle sibling", true
			}
		}
	}

	for _, candidate := range candidates {
		for _, ref := range p.assetIndex[candidate] {
			file, err := p.parseDonor(ref.section, ref.name)
			if err != nil {
				continue
			}
			if payload, ok := file.Payload(candidate); ok {
				return payload, ref.section + "/" + ref.name, true
			}
		}
	}
	return nil, "", false
}

// parseDonor reads and parses a canonical library container, caching the raw
// bytes so repeated template and payload lookups reuse one read. A fresh
// parse tree is returned each call since callers mutate it.
func (p *Patcher) parseDonor(section, name string) (*bars.File, error) {
	key := section + "/" + name
	data, ok := p.containers[key]
	if !ok {
		path := filepath.Join(p.donorDir, filepath.FromSlash(section), name)
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		p.containers[key] = data
	}
	return bars.Parse(data)
}

func listSiblingContainers(b bundle.Bundle, missing []bundle.RoleStatus) ([]*bars.File, error) {
	missingPaths := make(map[string]struct{}, len(missing))
	for _, status := range missing {
		missingPaths[b.AbsPath(status.RelPath)] = struct{}{}
	}

	var paths []string
	err := filepath.WalkDir(b.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".bars") {
			return nil
		}
		if _, isMissing := missingPaths[path]; isMissing {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan bundle containers: %w", err)
	}
	sort.Strings(paths)

	var files []*bars.File
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		file, err := bars.Parse(data)
		if err != nil {
			continue
		}
		files = append(files, file)
	}
	return files, nil
}

func buildAssetIndex(audioMap *mapping.AudioAssetMap) map[string][]donorRef {
	index := make(map[string][]donorRef)
	if audioMap == nil {
		return index
	}
	var sections []string
	for section := range audioMap.Sections {
		sections = append(sections, section)
	}
	sort.Strings(sections)
	for _, section := range sections {
		for _, name := range sortedNames(audioMap.Sections[section]) {
			for _, asset := range audioMap.Sections[section][name].Assets {
				index[asset] = append(index[asset], donorRef{section: section, name: name})
			}
		}
	}
	return index
}

func hasAllEntries(file *bars.File, assets []string) bool {
	for _, asset := range assets {
		if !file.HasEntry(asset) {
			return false
		}
	}
	return true
}

func swapPrefix(name, from, to string) string {
	if from == "" || to == "" || !strings.Contains(name, from) {
		return name
	}
	return strings.Replace(name, from, to, 1)
}

func sortedNames(specs map[string]mapping.ContainerSpec) []string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

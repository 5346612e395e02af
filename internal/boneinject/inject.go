package boneinject

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"rosterforge/internal/faults"
	"rosterforge/internal/fileutil"
	"rosterforge/internal/logging"
	"rosterforge/internal/sarc"
	"rosterforge/internal/yaz0"
)

// ModelResult records the injection outcome for one sub-resource.
type ModelResult struct {
	Model   string
	Added   []string
	Skipped []string
}

// Result is the outcome of injecting one archive.
type Result struct {
	Models  []ModelResult
	Changed bool
}

// Added counts newly injected bones across all sub-resources.
func (r Result) Added() int {
	total := 0
	for _, model := range r.Models {
		total += len(model.Added)
	}
	return total
}

// Inject decompresses the archive, appends canonical bones absent by name to
// every matching model sub-resource, and atomically replaces the file. When
// nothing needs adding the file is left untouched, so reinjection is a byte
// no-op. A sub-resource with no canonical hierarchy is skipped, not an error.
func Inject(path string, set *BoneSet, log *slog.Logger) (Result, error) {
	if log == nil {
		log = logging.NewNop()
	}
	log = logging.NewComponentLogger(log, "boneinject")

	var result Result
	if set.Empty() {
		return result, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return result, faults.Wrap(faults.ErrArchiveCorrupt, "boneinject", "read archive", path, err)
	}

	compressed := yaz0.IsCompressed(raw)
	data := raw
	if compressed {
		data, err = yaz0.Decompress(raw)
		if err != nil {
			return result, faults.Wrap(faults.ErrArchiveCorrupt, "boneinject", "decompress archive", path, err)
		}
	}

	archive, err := sarc.Parse(data)
	if err != nil {
		return result, faults.Wrap(faults.ErrArchiveCorrupt, "boneinject", "parse archive", path, err)
	}

	for _, name := range archive.Names() {
		if !strings.EqualFold(filepath.Ext(name), ".bfmdl") {
			continue
		}
		entry, _ := archive.Entry(name)
		model, err := ParseModel(entry.Data)
		if err != nil {
			return result, faults.Wrap(faults.ErrArchiveCorrupt, "boneinject", "parse model", name, err)
		}

		bones, ok := set.BonesFor(model.Name)
		if !ok {
			continue
		}

		modelResult := ModelResult{Model: model.Name}
		for _, bone := range bones {
			if model.HasBone(bone.Name) {
				modelResult.Skipped = append(modelResult.Skipped, bone.Name)
				continue
			}
			model.AppendBone(bone)
			modelResult.Added = append(modelResult.Added, bone.Name)
		}
		result.Models = append(result.Models, modelResult)

		if len(modelResult.Added) == 0 {
			continue
		}
		if err := archive.Replace(name, model.Encode()); err != nil {
			return result, faults.Wrap(faults.ErrArchiveCorrupt, "boneinject", "replace model", name, err)
		}
		result.Changed = true
		log.Info("bones injected",
			logging.String("archive", filepath.Base(path)),
			logging.String("model", model.Name),
			logging.Int("added", len(modelResult.Added)))
	}

	if !result.Changed {
		return result, nil
	}

	encoded := archive.Encode()
	if compressed {
		encoded = yaz0.Compress(encoded)
	}
	if err := fileutil.WriteAtomic(path, encoded); err != nil {
		return result, faults.Wrap(faults.ErrArchiveCorrupt, "boneinject", "write archive", path, err)
	}
	return result, nil
}

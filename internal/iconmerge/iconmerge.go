// Package iconmerge replaces per-character icon textures inside the shared
// UI archives. Each shared archive is a SARC (optionally Yaz0-compressed)
// whose combined-icon entries are Yaz0 SARCs holding a BNTX texture resource.
// The archive is rebuilt fully in memory and swapped onto disk only when at
// least one icon merged cleanly; a bad icon fails alone, not the merge.
package iconmerge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"strings"

	"rosterforge/internal/bntx"
	"rosterforge/internal/faults"
	"rosterforge/internal/fileutil"
	"rosterforge/internal/logging"
	"rosterforge/internal/sarc"
	"rosterforge/internal/yaz0"
)

// combinedTag marks the inner entries that hold the icon atlas.
const combinedTag = "CharaIcon_00"

// Icon is one requested replacement: the character's source image and the
// texture entry it replaces inside the combined resource.
type Icon struct {
	Character string
	Texture   string
	PNGPath   string
}

// Failure records one icon that could not be merged. Dimension is set when
// the icon's pixel size did not match its atlas slot.
type Failure struct {
	Character string
	Reason    string
	Dimension bool
}

// Result is the outcome of merging one shared archive.
type Result struct {
	Archive  string
	Merged   []string
	Failures []Failure
}

// Merge replaces the icon textures in one shared archive. Dimension
// mismatches and unreadable images are per-icon failures; a corrupt archive
// is fatal. The file is replaced atomically and only on success.
func Merge(ctx context.Context, archivePath string, icons []Icon, log *slog.Logger) (Result, error) {
	if log == nil {
		log = logging.NewNop()
	}
	log = logging.NewComponentLogger(log, "iconmerge")

	result := Result{Archive: archivePath}

	raw, err := os.ReadFile(archivePath)
	if err != nil {
		return result, faults.Wrap(faults.ErrArchiveCorrupt, "iconmerge", "read archive", archivePath, err)
	}
	outerCompressed := yaz0.IsCompressed(raw)
	outerData := raw
	if outerCompressed {
		outerData, err = yaz0.Decompress(raw)
		if err != nil {
			return result, faults.Wrap(faults.ErrArchiveCorrupt, "iconmerge", "decompress archive", archivePath, err)
		}
	}
	outer, err := sarc.Parse(outerData)
	if err != nil {
		return result, faults.Wrap(faults.ErrArchiveCorrupt, "iconmerge", "parse archive", archivePath, err)
	}

	atlases, err := openAtlases(outer, archivePath)
	if err != nil {
		return result, err
	}
	if len(atlases) == 0 {
		return result, faults.Wrap(faults.ErrArchiveCorrupt, "iconmerge", "locate atlas",
			fmt.Sprintf("%s has no %s entry", archivePath, combinedTag), nil)
	}

	changed := false
	for _, icon := range icons {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := mergeIcon(atlases, icon); err != nil {
			result.Failures = append(result.Failures, Failure{
				Character: icon.Character,
				Reason:    err.Error(),
				Dimension: errors.Is(err, faults.ErrDimensionMismatch),
			})
			log.Warn("icon skipped",
				logging.String("character", icon.Character),
				logging.Error(err))
			continue
		}
		changed = true
		result.Merged = append(result.Merged, icon.Character)
		log.Debug("icon merged",
			logging.String("character", icon.Character),
			logging.String("texture", icon.Texture))
	}

	if !changed {
		return result, nil
	}

	for _, atlas := range atlases {
		if err := atlas.inner.Replace(atlas.resourceName, atlas.resource); err != nil {
			return result, faults.Wrap(faults.ErrArchiveCorrupt, "iconmerge", "rebuild atlas", atlas.resourceName, err)
		}
		if err := outer.Replace(atlas.entryName, yaz0.Compress(atlas.inner.Encode())); err != nil {
			return result, faults.Wrap(faults.ErrArchiveCorrupt, "iconmerge", "rebuild archive", atlas.entryName, err)
		}
	}

	encoded := outer.Encode()
	if outerCompressed {
		encoded = yaz0.Compress(encoded)
	}
	if err := fileutil.WriteAtomic(archivePath, encoded); err != nil {
		return result, fmt.Errorf("write archive %s: %w", archivePath, err)
	}
	return result, nil
}

// atlas is one inner combined-icon resource opened for patching.
type atlas struct {
	entryName    string
	inner        *sarc.Archive
	resourceName string
	resource     []byte
}

func openAtlases(outer *sarc.Archive, archivePath string) ([]*atlas, error) {
	var atlases []*atlas
	for _, name := range outer.Names() {
		if !strings.Contains(name, combinedTag) {
			continue
		}
		entry, _ := outer.Entry(name)
		data := entry.Data
		if yaz0.IsCompressed(data) {
			var err error
			data, err = yaz0.Decompress(data)
			if err != nil {
				return nil, faults.Wrap(faults.ErrArchiveCorrupt, "iconmerge", "decompress atlas", name, err)
			}
		}
		inner, err := sarc.Parse(data)
		if err != nil {
			return nil, faults.Wrap(faults.ErrArchiveCorrupt, "iconmerge", "parse atlas", name, err)
		}

		for _, innerName := range inner.Names() {
			innerEntry, _ := inner.Entry(innerName)
			if len(innerEntry.Data) >= 4 && bytes.Equal(innerEntry.Data[:4], []byte("BNTX")) {
				atlases = append(atlases, &atlas{
					entryName:    name,
					inner:        inner,
					resourceName: innerName,
					resource:     append([]byte(nil), innerEntry.Data...),
				})
			}
		}
	}
	if atlases == nil && len(outer.Entries) == 0 {
		return nil, faults.Wrap(faults.ErrArchiveCorrupt, "iconmerge", "locate atlas", archivePath+" is empty", nil)
	}
	return atlases, nil
}

func mergeIcon(atlases []*atlas, icon Icon) error {
	pixels, width, height, err := loadPNG(icon.PNGPath)
	if err != nil {
		return err
	}

	for _, atlas := range atlases {
		if !bntx.HasTexture(atlas.resource, icon.Texture) {
			continue
		}
		if err := bntx.PatchTexture(atlas.resource, icon.Texture, pixels, width, height); err != nil {
			var dimErr *bntx.DimensionError
			if errors.As(err, &dimErr) {
				return faults.Wrap(faults.ErrDimensionMismatch, "iconmerge", "patch texture", icon.Texture, err)
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("texture %s not found in any atlas", icon.Texture)
}

func loadPNG(path string) ([]byte, int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open icon: %w", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode icon %s: %w", path, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba.Pix, bounds.Dx(), bounds.Dy(), nil
}

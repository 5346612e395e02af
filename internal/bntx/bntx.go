// Package bntx patches texture resources in place.
//
// A resource holds one or more BRTI info blocks, each describing a texture
// surface stored in the Tegra block-linear layout. Patching replaces the
// first-mip pixel data of a named texture with linear RGBA input, swizzled to
// match, without moving anything: the patched blob has exactly the same size
// as the original, which keeps enclosing archives with offset-based entry
// tables valid.
//
// Only single-mip RGBA8/BGRA8 surfaces are patchable. Everything else is
// reported, never guessed at.
package bntx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	brtiHeaderLen = 16  // block header preceding the info struct
	infoLen       = 144 // packed TextureInfo struct
)

const (
	fmtRGBA8 = 0x0B
	fmtBGRA8 = 0x0C
)

// ErrNoTexture is returned when a named texture is absent from the resource.
var ErrNoTexture = errors.New("bntx: texture not found")

// DimensionError reports a pixel buffer whose dimensions do not match the
// target surface.
type DimensionError struct {
	Name                  string
	WantWidth, WantHeight int
	GotWidth, GotHeight   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("bntx: texture %s is %dx%d, replacement is %dx%d",
		e.Name, e.WantWidth, e.WantHeight, e.GotWidth, e.GotHeight)
}

// TextureInfo is the decoded form of one BRTI info block.
type TextureInfo struct {
	Name       string
	TileMode   uint16
	NumMips    uint16
	Format     uint32
	Width      int32
	Height     int32
	Depth      int32
	Layout     uint32
	ImageSize  uint32
	CompSel    uint32
	NameAddr   int64
	PtrsAddr   int64
	infoOffset int
}

func (t *TextureInfo) blockHeightLog2() uint32 { return t.Layout & 7 }

func (t *TextureInfo) compSelList() [4]byte {
	var sel [4]byte
	for i := 0; i < 4; i++ {
		sel[i] = byte(t.CompSel >> (8 * i))
	}
	return sel
}

// Patchable reports whether the surface is one this package can rewrite.
func (t *TextureInfo) Patchable() bool {
	high := byte(t.Format >> 8)
	return t.NumMips == 1 && (high == fmtRGBA8 || high == fmtBGRA8)
}

// ScanTextures locates every BRTI block in the resource and decodes its info
// struct. Blocks whose name or pointer table fall outside the buffer are
// rejected rather than skipped.
func ScanTextures(data []byte) ([]TextureInfo, error) {
	var infos []TextureInfo
	pos := 0
	for {
		idx := bytes.Index(data[pos:], []byte("BRTI"))
		if idx < 0 {
			break
		}
		offset := pos + idx + brtiHeaderLen
		info, err := parseInfo(data, offset)
		if err != nil {
			return nil, fmt.Errorf("bntx: info block at %#x: %w", pos+idx, err)
		}
		infos = append(infos, info)
		pos += idx + 4
	}
	return infos, nil
}

// PatchTexture overwrites the first-mip data of the named texture with the
// given linear RGBA pixels, swizzled to the surface layout. The patch is in
// place and size preserving.
func PatchTexture(data []byte, name string, pixels []byte, width, height int) error {
	infos, err := ScanTextures(data)
	if err != nil {
		return err
	}
	for i := range infos {
		info := &infos[i]
		if info.Name != name {
			continue
		}
		if !info.Patchable() {
			return fmt.Errorf("bntx: texture %s has format %#04x with %d mips, cannot patch",
				name, info.Format, info.NumMips)
		}
		if int(info.Width) != width || int(info.Height) != height {
			return &DimensionError{
				Name:       name,
				WantWidth:  int(info.Width),
				WantHeight: int(info.Height),
				GotWidth:   width,
				GotHeight:  height,
			}
		}
		if len(pixels) != width*height*4 {
			return fmt.Errorf("bntx: pixel buffer is %d bytes, want %d", len(pixels), width*height*4)
		}

		reordered := applyComponentSelect(pixels, info.compSelList())
		surface := swizzle(width, height, 4, info.TileMode, levelBlockHeightLog2(info), reordered)
		if len(surface) < int(info.ImageSize) {
			surface = append(surface, make([]byte, int(info.ImageSize)-len(surface))...)
		} else if len(surface) > int(info.ImageSize) {
			surface = surface[:info.ImageSize]
		}

		if info.PtrsAddr < 0 || int(info.PtrsAddr)+8 > len(data) {
			return fmt.Errorf("bntx: texture %s pointer table out of bounds", name)
		}
		mipOffset := int64(binary.LittleEndian.Uint64(data[info.PtrsAddr:]))
		end := mipOffset + int64(info.ImageSize)
		if mipOffset < 0 || end > int64(len(data)) {
			return fmt.Errorf("bntx: texture %s data range out of bounds", name)
		}
		copy(data[mipOffset:end], surface)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoTexture, name)
}

// HasTexture reports whether a resource names the given texture.
func HasTexture(data []byte, name string) bool {
	infos, err := ScanTextures(data)
	if err != nil {
		return false
	}
	for _, info := range infos {
		if info.Name == name {
			return true
		}
	}
	return false
}

func parseInfo(data []byte, offset int) (TextureInfo, error) {
	if offset+infoLen > len(data) {
		return TextureInfo{}, errors.New("truncated info struct")
	}
	b := data[offset:]
	info := TextureInfo{
		TileMode:   binary.LittleEndian.Uint16(b[2:]),
		NumMips:    binary.LittleEndian.Uint16(b[6:]),
		Format:     binary.LittleEndian.Uint32(b[12:]),
		Width:      int32(binary.LittleEndian.Uint32(b[20:])),
		Height:     int32(binary.LittleEndian.Uint32(b[24:])),
		Depth:      int32(binary.LittleEndian.Uint32(b[28:])),
		Layout:     binary.LittleEndian.Uint32(b[36:]),
		ImageSize:  binary.LittleEndian.Uint32(b[64:]),
		CompSel:    binary.LittleEndian.Uint32(b[72:]),
		NameAddr:   int64(binary.LittleEndian.Uint64(b[80:])),
		PtrsAddr:   int64(binary.LittleEndian.Uint64(b[96:])),
		infoOffset: offset,
	}
	if info.Width <= 0 || info.Height <= 0 {
		return TextureInfo{}, fmt.Errorf("invalid dimensions %dx%d", info.Width, info.Height)
	}
	name, err := readString(data, info.NameAddr)
	if err != nil {
		return TextureInfo{}, err
	}
	info.Name = name
	return info, nil
}

// readString decodes the u16-length-prefixed name the info block points at.
func readString(data []byte, pos int64) (string, error) {
	if pos < 0 || int(pos)+2 > len(data) {
		return "", errors.New("name offset out of bounds")
	}
	size := int(binary.LittleEndian.Uint16(data[pos:]))
	end := int(pos) + 2 + size
	if end > len(data) {
		return "", errors.New("name length out of bounds")
	}
	return string(data[pos+2 : end]), nil
}

// levelBlockHeightLog2 shrinks the layout block height when the surface is too
// short to fill a full block, matching the hardware's per-level rule.
func levelBlockHeightLog2(info *TextureInfo) uint32 {
	log2 := info.blockHeightLog2()
	linesPerBlock := (uint32(1) << log2) * 8
	if pow2RoundUp(uint32(info.Height)) < linesPerBlock && log2 > 0 {
		log2--
	}
	return log2
}

// applyComponentSelect reorders RGBA bytes per the surface's channel
// selectors. Selector values: 0 zero, 1 one, 2..5 are R, G, B, A.
func applyComponentSelect(pixels []byte, sel [4]byte) []byte {
	if sel == [4]byte{2, 3, 4, 5} {
		return pixels
	}
	out := make([]byte, len(pixels))
	for i := 0; i+4 <= len(pixels); i += 4 {
		for c, s := range sel {
			switch s {
			case 0:
				out[i+c] = 0x00
			case 1:
				out[i+c] = 0xFF
			case 2, 3, 4, 5:
				out[i+c] = pixels[i+int(s)-2]
			default:
				out[i+c] = 0x00
			}
		}
	}
	return out
}

// swizzle writes linear pixels into the block-linear surface layout. Tile
// mode 1 is plain pitch-linear with a 32-byte rounded pitch.
func swizzle(width, height, bpp int, tileMode uint16, blockHeightLog2 uint32, linear []byte) []byte {
	blockHeight := 1 << blockHeightLog2

	var pitch, surfSize int
	if tileMode == 1 {
		pitch = roundUp(width*bpp, 32)
		surfSize = pitch * height
	} else {
		pitch = roundUp(width*bpp, 64)
		surfSize = pitch * roundUp(height, blockHeight*8)
	}

	out := make([]byte, surfSize)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var pos int
			if tileMode == 1 {
				pos = y*pitch + x*bpp
			} else {
				pos = blockLinearAddr(x, y, width, bpp, blockHeight)
			}
			if pos+bpp > surfSize {
				continue
			}
			src := (y*width + x) * bpp
			copy(out[pos:pos+bpp], linear[src:src+bpp])
		}
	}
	return out
}

// blockLinearAddr computes the byte address of a pixel inside a Tegra X1
// block-linear surface built from 64x8 GOBs.
func blockLinearAddr(x, y, imageWidth, bpp, blockHeight int) int {
	widthInGOBs := divRoundUp(imageWidth*bpp, 64)
	gobAddr := (y/(8*blockHeight))*512*blockHeight*widthInGOBs +
		(x*bpp/64)*512*blockHeight +
		(y%(8*blockHeight)/8)*512
	xBytes := x * bpp
	return gobAddr +
		(xBytes%64/32)*256 +
		(y%8/2)*64 +
		(xBytes%32/16)*32 +
		(y%2)*16 +
		xBytes%16
}

func divRoundUp(n, d int) int { return (n + d - 1) / d }

func roundUp(x, align int) int { return (x + align - 1) &^ (align - 1) }

func pow2RoundUp(x uint32) uint32 {
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	return x + 1
}

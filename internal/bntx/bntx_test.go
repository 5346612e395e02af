package bntx_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"rosterforge/internal/bntx"
	"rosterforge/internal/testsupport"
)

func TestScanTextures(t *testing.T) {
	data := testsupport.BNTXResource(
		tex("tc_Chara_Mario^l", 8, 8),
		tex("tc_Chara_Peach^l", 16, 8),
	)

	infos, err := bntx.ScanTextures(data)
	if err != nil {
		t.Fatalf("ScanTextures: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("found %d textures, want 2", len(infos))
	}
	if infos[0].Name != "tc_Chara_Mario^l" || infos[1].Name != "tc_Chara_Peach^l" {
		t.Fatalf("names = %q, %q", infos[0].Name, infos[1].Name)
	}
	if infos[1].Width != 16 || infos[1].Height != 8 {
		t.Fatalf("dimensions = %dx%d", infos[1].Width, infos[1].Height)
	}
	if !infos[0].Patchable() {
		t.Fatal("single-mip RGBA8 surface reported unpatchable")
	}
}

// Pitch-linear surfaces store rows verbatim, so the patched data region must
// equal the input pixels.
func TestPatchTexturePitchLinear(t *testing.T) {
	const w, h = 8, 4
	data := testsupport.BNTXResource(testsupport.BNTXTexture{
		Name: "tc_Chara_DK^l", Width: w, Height: h, TileMode: 1,
	})

	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	if err := bntx.PatchTexture(data, "tc_Chara_DK^l", pixels, w, h); err != nil {
		t.Fatalf("PatchTexture: %v", err)
	}

	region := dataRegion(t, data, w*h*4)
	if !bytes.Equal(region, pixels) {
		t.Fatal("pitch-linear surface does not hold the linear pixels")
	}
}

func TestPatchTextureBlockLinearAddressing(t *testing.T) {
	const w, h = 16, 8
	data := testsupport.BNTXResource(tex("tc_Chara_Yoshi^l", w, h))

	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = byte(i + 1)
	}
	if err := bntx.PatchTexture(data, "tc_Chara_Yoshi^l", pixels, w, h); err != nil {
		t.Fatalf("PatchTexture: %v", err)
	}

	region := dataRegion(t, data, 64*8)
	// GOB addressing: pixel (1,0) lands at byte 4, pixel (0,1) at byte 16.
	if !bytes.Equal(region[0:4], pixels[0:4]) {
		t.Fatal("pixel (0,0) not at surface offset 0")
	}
	if !bytes.Equal(region[4:8], pixels[4:8]) {
		t.Fatal("pixel (1,0) not at surface offset 4")
	}
	if !bytes.Equal(region[16:20], pixels[w*4:w*4+4]) {
		t.Fatal("pixel (0,1) not at surface offset 16")
	}
}

func TestPatchTextureDimensionMismatch(t *testing.T) {
	data := testsupport.BNTXResource(tex("tc_Chara_Rosalina^l", 8, 8))

	err := bntx.PatchTexture(data, "tc_Chara_Rosalina^l", make([]byte, 4*4*4), 4, 4)
	var dim *bntx.DimensionError
	if !errors.As(err, &dim) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
	if dim.WantWidth != 8 || dim.GotWidth != 4 {
		t.Fatalf("mismatch detail = %+v", dim)
	}
}

func TestPatchTextureRejectsUnsupportedSurface(t *testing.T) {
	multiMip := testsupport.BNTXResource(testsupport.BNTXTexture{
		Name: "tc_Chara_Toad^l", Width: 8, Height: 8, Mips: 5,
	})
	if err := bntx.PatchTexture(multiMip, "tc_Chara_Toad^l", make([]byte, 8*8*4), 8, 8); err == nil {
		t.Fatal("expected error for multi-mip surface")
	}

	bc1 := testsupport.BNTXResource(testsupport.BNTXTexture{
		Name: "tc_Chara_Toad^l", Width: 8, Height: 8, Format: 0x1A06,
	})
	if err := bntx.PatchTexture(bc1, "tc_Chara_Toad^l", make([]byte, 8*8*4), 8, 8); err == nil {
		t.Fatal("expected error for compressed format")
	}
}

func TestPatchTextureUnknownName(t *testing.T) {
	data := testsupport.BNTXResource(tex("tc_Chara_Mario^l", 8, 8))
	err := bntx.PatchTexture(data, "tc_Chara_Nobody^l", make([]byte, 8*8*4), 8, 8)
	if !errors.Is(err, bntx.ErrNoTexture) {
		t.Fatalf("expected ErrNoTexture, got %v", err)
	}
	if !bntx.HasTexture(data, "tc_Chara_Mario^l") {
		t.Fatal("HasTexture missed a present texture")
	}
}

func TestPatchPreservesSize(t *testing.T) {
	data := testsupport.BNTXResource(tex("tc_Chara_Luigi^l", 16, 8))
	before := len(data)
	if err := bntx.PatchTexture(data, "tc_Chara_Luigi^l", make([]byte, 16*8*4), 16, 8); err != nil {
		t.Fatalf("PatchTexture: %v", err)
	}
	if len(data) != before {
		t.Fatalf("blob size changed from %d to %d", before, len(data))
	}
}

func tex(name string, w, h int) testsupport.BNTXTexture {
	return testsupport.BNTXTexture{Name: name, Width: w, Height: h}
}

// dataRegion finds the surface bytes of the sole texture by following its
// pointer table, the same way the patcher does.
func dataRegion(t *testing.T, data []byte, size int) []byte {
	t.Helper()
	infos, err := bntx.ScanTextures(data)
	if err != nil || len(infos) != 1 {
		t.Fatalf("ScanTextures: %v (%d infos)", err, len(infos))
	}
	mip := binary.LittleEndian.Uint64(data[infos[0].PtrsAddr:])
	return data[mip : int(mip)+size]
}

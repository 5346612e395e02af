package testsupport

import (
	"encoding/binary"
	"hash/crc32"
	"sort"
)

// BNTXTexture describes one surface for BNTXResource.
type BNTXTexture struct {
	Name     string
	Width    int
	Height   int
	TileMode uint16
	Layout   uint32
	Format   uint32 // zero means RGBA8
	Mips     uint16 // zero means 1
	CompSel  uint32 // zero means identity RGBA
}

// BNTXResource builds a texture resource blob holding one BRTI block per
// texture, with the layout the bntx package scans: a 16-byte block header,
// the 144-byte info struct, a u16-length-prefixed name, an 8-byte pointer
// table and the surface data.
func BNTXResource(textures ...BNTXTexture) []byte {
	out := make([]byte, 32)
	copy(out, "BNTX")

	for _, tex := range textures {
		format := tex.Format
		if format == 0 {
			format = 0x0B06
		}
		mips := tex.Mips
		if mips == 0 {
			mips = 1
		}
		compSel := tex.CompSel
		if compSel == 0 {
			compSel = 0x05040302
		}
		imageSize := surfaceSize(tex.Width, tex.Height, tex.TileMode, tex.Layout)

		infoOff := len(out) + 16
		nameOff := infoOff + 144
		nameLen := 2 + len(tex.Name) + 1
		ptrsOff := (nameOff + nameLen + 7) / 8 * 8
		dataOff := ptrsOff + 8

		block := make([]byte, 16+144)
		copy(block, "BRTI")
		info := block[16:]
		binary.LittleEndian.PutUint16(info[2:], tex.TileMode)
		binary.LittleEndian.PutUint16(info[6:], mips)
		binary.LittleEndian.PutUint32(info[12:], format)
		binary.LittleEndian.PutUint32(info[20:], uint32(tex.Width))
		binary.LittleEndian.PutUint32(info[24:], uint32(tex.Height))
		binary.LittleEndian.PutUint32(info[28:], 1)
		binary.LittleEndian.PutUint32(info[36:], tex.Layout)
		binary.LittleEndian.PutUint32(info[64:], uint32(imageSize))
		binary.LittleEndian.PutUint32(info[72:], compSel)
		binary.LittleEndian.PutUint64(info[80:], uint64(nameOff))
		binary.LittleEndian.PutUint64(info[96:], uint64(ptrsOff))
		out = append(out, block...)

		name := make([]byte, nameLen)
		binary.LittleEndian.PutUint16(name, uint16(len(tex.Name)))
		copy(name[2:], tex.Name)
		out = append(out, name...)
		out = append(out, make([]byte, ptrsOff-(nameOff+nameLen))...)
		out = binary.LittleEndian.AppendUint64(out, uint64(dataOff))
		out = append(out, make([]byte, imageSize)...)
	}
	return out
}

func surfaceSize(width, height int, tileMode uint16, layout uint32) int {
	if tileMode == 1 {
		return roundUp32(width*4) * height
	}
	blockHeight := 1 << (layout & 7)
	pitch := (width*4 + 63) &^ 63
	rows := (height + blockHeight*8 - 1) / (blockHeight * 8) * (blockHeight * 8)
	return pitch * rows
}

func roundUp32(x int) int { return (x + 31) &^ 31 }

// AMTARecord builds a minimal metadata record carrying the given name in a
// STRG chunk, matching the layout the bars package reads and preserves.
func AMTARecord(name string) []byte {
	strData := append([]byte(name), 0)
	for len(strData)%4 != 0 {
		strData = append(strData, 0)
	}
	body := make([]byte, 0, 32+len(strData))
	body = append(body, "AMTA"...)
	body = append(body, 0xFF, 0xFE) // byte order mark
	body = append(body, 1, 0)       // version
	body = binary.LittleEndian.AppendUint32(body, 0) // total size, patched below
	body = binary.LittleEndian.AppendUint32(body, 0) // data offset placeholder
	body = append(body, "STRG"...)
	body = binary.LittleEndian.AppendUint32(body, uint32(len(name)+1))
	body = append(body, strData...)
	binary.LittleEndian.PutUint32(body[8:12], uint32(len(body)))
	return body
}

// BARSContainer builds container bytes from name to payload pairs, with the
// hash table in ascending order and payloads aligned to 64 bytes.
func BARSContainer(assets map[string][]byte) []byte {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return crc32.ChecksumIEEE([]byte(names[i])) < crc32.ChecksumIEEE([]byte(names[j]))
	})

	metas := make([][]byte, len(names))
	for i, name := range names {
		metas[i] = AMTARecord(name)
	}

	count := len(names)
	preamble := 16
	tableEnd := preamble + count*4 + count*8
	metaOffsets := make([]uint32, count)
	cursor := tableEnd
	for i, meta := range metas {
		metaOffsets[i] = uint32(cursor)
		cursor += len(meta)
	}
	assetOffsets := make([]uint32, count)
	for i, name := range names {
		cursor = (cursor + 63) / 64 * 64
		assetOffsets[i] = uint32(cursor)
		cursor += len(assets[name])
	}

	out := make([]byte, cursor)
	copy(out[0:4], "BARS")
	binary.LittleEndian.PutUint32(out[4:8], uint32(cursor))
	out[8], out[9] = 0xFF, 0xFE
	out[10], out[11] = 1, 0
	binary.LittleEndian.PutUint32(out[12:16], uint32(count))
	for i, name := range names {
		binary.LittleEndian.PutUint32(out[preamble+i*4:], crc32.ChecksumIEEE([]byte(name)))
	}
	pairBase := preamble + count*4
	for i := range names {
		binary.LittleEndian.PutUint32(out[pairBase+i*8:], metaOffsets[i])
		binary.LittleEndian.PutUint32(out[pairBase+i*8+4:], assetOffsets[i])
	}
	for i, meta := range metas {
		copy(out[metaOffsets[i]:], meta)
	}
	for i, name := range names {
		copy(out[assetOffsets[i]:], assets[name])
	}
	return out
}

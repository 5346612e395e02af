// Package bars reads and patches BARS sound-bank containers.
//
// A container holds an ascending CRC32 table of entry names, a pair table of
// metadata/payload offsets, one AMTA metadata record per entry, and opaque
// waveform payload blobs aligned to 64 bytes. Metadata records are preserved
// byte for byte; the only mutation this package supports is swapping payload
// bytes for a named entry, after which Encode recomputes the offset table and
// total size while leaving everything else identical.
package bars

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"sort"
)

const (
	payloadAlign = 64
	preambleLen  = 4 + 4 + 2 + 1 + 1 + 4 // magic, size, bom, version, count
)

// Entry is one named sound asset in a container.
type Entry struct {
	Hash uint32
	Name string
	Meta []byte // raw AMTA record, preserved verbatim

	payload int // index into File.payloads
}

// File is the decoded form of a BARS container.
type File struct {
	big      bool
	verMinor byte
	verMajor byte
	gap      []byte // bytes between the pair table and the first metadata record

	Entries  []Entry
	payloads [][]byte
}

// NameHash returns the CRC32 used to key container entries.
func NameHash(name string) uint32 {
	return crc32.ChecksumIEEE([]byte(name))
}

// Parse decodes a BARS container.
func Parse(data []byte) (*File, error) {
	if len(data) < preambleLen {
		return nil, fmt.Errorf("bars: input too small (%d bytes)", len(data))
	}
	if string(data[0:4]) != "BARS" {
		return nil, errors.New("bars: missing magic")
	}
	var order binary.ByteOrder = binary.LittleEndian
	big := false
	switch {
	case data[8] == 0xFF && data[9] == 0xFE:
		// little endian
	case data[8] == 0xFE && data[9] == 0xFF:
		order = binary.BigEndian
		big = true
	default:
		return nil, errors.New("bars: invalid byte order mark")
	}
	size := order.Uint32(data[4:8])
	if int(size) > len(data) {
		return nil, fmt.Errorf("bars: header claims %d bytes, have %d", size, len(data))
	}
	f := &File{big: big, verMinor: data[10], verMajor: data[11]}
	count := int(order.Uint32(data[12:16]))

	tableEnd := preambleLen + count*4 + count*8
	if tableEnd > len(data) {
		return nil, errors.New("bars: offset table truncated")
	}
	hashes := make([]uint32, count)
	for i := 0; i < count; i++ {
		hashes[i] = order.Uint32(data[preambleLen+i*4:])
	}
	metaOffsets := make([]uint32, count)
	assetOffsets := make([]uint32, count)
	pairBase := preambleLen + count*4
	for i := 0; i < count; i++ {
		metaOffsets[i] = order.Uint32(data[pairBase+i*8:])
		assetOffsets[i] = order.Uint32(data[pairBase+i*8+4:])
	}

	if count > 0 {
		first := int(metaOffsets[0])
		if first < tableEnd || first > len(data) {
			return nil, errors.New("bars: first metadata offset out of bounds")
		}
		f.gap = append([]byte(nil), data[tableEnd:first]...)
	}

	seen := make(map[uint32]int, count)
	for i := 0; i < count; i++ {
		meta, err := sliceMeta(data, metaOffsets[i], order)
		if err != nil {
			return nil, fmt.Errorf("bars: entry %d: %w", i, err)
		}
		entry := Entry{Hash: hashes[i], Name: metaName(meta, order), Meta: meta}

		off := assetOffsets[i]
		if idx, ok := seen[off]; ok {
			entry.payload = idx
		} else {
			end := uint32(size)
			for _, other := range assetOffsets {
				if other > off && other < end {
					end = other
				}
			}
			if off > end || int(end) > len(data) {
				return nil, fmt.Errorf("bars: entry %d payload range out of bounds", i)
			}
			f.payloads = append(f.payloads, append([]byte(nil), data[off:end]...))
			entry.payload = len(f.payloads) - 1
			seen[off] = entry.payload
		}
		f.Entries = append(f.Entries, entry)
	}
	return f, nil
}

// Names returns the entry names in container order. Unnamed entries are
// returned as empty strings.
func (f *File) Names() []string {
	names := make([]string, len(f.Entries))
	for i, e := range f.Entries {
		names[i] = e.Name
	}
	return names
}

// Payload returns the waveform bytes for the named entry.
func (f *File) Payload(name string) ([]byte, bool) {
	for _, e := range f.Entries {
		if e.Name == name {
			return f.payloads[e.payload], true
		}
	}
	return nil, false
}

// HasEntry reports whether the container holds an entry with the given name.
func (f *File) HasEntry(name string) bool {
	_, ok := f.Payload(name)
	return ok
}

// ReplacePayload swaps the waveform bytes of the named entry. The entry gets
// a private payload even if it previously shared bytes with a sibling, so the
// sibling's bytes stay untouched.
func (f *File) ReplacePayload(name string, data []byte) error {
	for i := range f.Entries {
		if f.Entries[i].Name != name {
			continue
		}
		shared := false
		for j := range f.Entries {
			if j != i && f.Entries[j].payload == f.Entries[i].payload {
				shared = true
				break
			}
		}
		blob := append([]byte(nil), data...)
		if shared {
			f.payloads = append(f.payloads, blob)
			f.Entries[i].payload = len(f.payloads) - 1
		} else {
			f.payloads[f.Entries[i].payload] = blob
		}
		return nil
	}
	return fmt.Errorf("bars: no entry named %q", name)
}

// RenameEntry rewrites the name of an entry, patching the STRG chunk inside
// its metadata record and recomputing its hash. The hash table is re-sorted
// afterwards so lookups stay valid.
func (f *File) RenameEntry(oldName, newName string) error {
	for i := range f.Entries {
		if f.Entries[i].Name != oldName {
			continue
		}
		meta, err := rewriteMetaName(f.Entries[i].Meta, newName, f.order())
		if err != nil {
			return fmt.Errorf("bars: rename %q: %w", oldName, err)
		}
		f.Entries[i].Meta = meta
		f.Entries[i].Name = newName
		f.Entries[i].Hash = NameHash(newName)
		sort.SliceStable(f.Entries, func(a, b int) bool {
			return f.Entries[a].Hash < f.Entries[b].Hash
		})
		return nil
	}
	return fmt.Errorf("bars: no entry named %q", oldName)
}

// Encode regenerates the container bytes with recomputed offsets and size.
func (f *File) Encode() []byte {
	order := f.order()
	count := len(f.Entries)

	metaBase := preambleLen + count*4 + count*8 + len(f.gap)
	metaOffsets := make([]uint32, count)
	cursor := metaBase
	for i, e := range f.Entries {
		metaOffsets[i] = uint32(cursor)
		cursor += len(e.Meta)
	}

	// Unique payloads in first-reference order, offsets aligned to 64.
	placement := make(map[int]int, len(f.payloads))
	var lastEnd int
	for _, e := range f.Entries {
		if _, ok := placement[e.payload]; ok {
			continue
		}
		cursor = alignUp(cursor, payloadAlign)
		placement[e.payload] = cursor
		cursor += len(f.payloads[e.payload])
		lastEnd = cursor
	}
	if count == 0 {
		lastEnd = metaBase
	}

	out := make([]byte, lastEnd)
	copy(out[0:4], "BARS")
	order.PutUint32(out[4:8], uint32(lastEnd))
	if f.big {
		out[8], out[9] = 0xFE, 0xFF
	} else {
		out[8], out[9] = 0xFF, 0xFE
	}
	out[10] = f.verMinor
	out[11] = f.verMajor
	order.PutUint32(out[12:16], uint32(count))
	for i, e := range f.Entries {
		order.PutUint32(out[preambleLen+i*4:], e.Hash)
	}
	pairBase := preambleLen + count*4
	for i, e := range f.Entries {
		order.PutUint32(out[pairBase+i*8:], metaOffsets[i])
		order.PutUint32(out[pairBase+i*8+4:], uint32(placement[e.payload]))
	}
	copy(out[pairBase+count*8:], f.gap)
	for i, e := range f.Entries {
		copy(out[metaOffsets[i]:], e.Meta)
	}
	for idx, off := range placement {
		copy(out[off:], f.payloads[idx])
	}
	return out
}

// SortedByHash reports whether the hash table is ascending, which the game
// runtime requires for binary search.
func (f *File) SortedByHash() bool {
	return sort.SliceIsSorted(f.Entries, func(i, j int) bool {
		return f.Entries[i].Hash < f.Entries[j].Hash
	})
}

func (f *File) order() binary.ByteOrder {
	if f.big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func sliceMeta(data []byte, offset uint32, order binary.ByteOrder) ([]byte, error) {
	if int(offset)+12 > len(data) {
		return nil, errors.New("metadata offset out of bounds")
	}
	if string(data[offset:offset+4]) != "AMTA" {
		return nil, errors.New("metadata record missing AMTA magic")
	}
	size := order.Uint32(data[offset+8 : offset+12])
	end := int(offset) + int(size)
	if size < 12 || end > len(data) {
		return nil, fmt.Errorf("metadata record size %d out of bounds", size)
	}
	return append([]byte(nil), data[offset:end]...), nil
}

// metaName extracts the asset name from an AMTA record's STRG chunk. Records
// without a STRG chunk yield an empty name.
func metaName(meta []byte, order binary.ByteOrder) string {
	idx := bytes.Index(meta, []byte("STRG"))
	if idx < 0 || idx+8 > len(meta) {
		return ""
	}
	strLen := int(order.Uint32(meta[idx+4 : idx+8]))
	if strLen <= 1 || idx+8+strLen > len(meta) {
		return ""
	}
	return string(meta[idx+8 : idx+8+strLen-1]) // trailing NUL excluded
}

// rewriteMetaName swaps the string stored in an AMTA record's STRG chunk and
// fixes up the chunk length and the record's total size field.
func rewriteMetaName(meta []byte, name string, order binary.ByteOrder) ([]byte, error) {
	idx := bytes.Index(meta, []byte("STRG"))
	if idx < 0 || idx+8 > len(meta) {
		return nil, errors.New("metadata record has no STRG chunk")
	}
	oldLen := int(order.Uint32(meta[idx+4 : idx+8]))
	oldEnd := idx + 8 + alignUp(oldLen, 4)
	if oldLen <= 0 || oldEnd > len(meta) {
		return nil, errors.New("STRG chunk length out of bounds")
	}
	newLen := len(name) + 1
	out := make([]byte, 0, len(meta)+newLen-oldLen)
	out = append(out, meta[:idx+4]...)
	var lenBuf [4]byte
	order.PutUint32(lenBuf[:], uint32(newLen))
	out = append(out, lenBuf[:]...)
	out = append(out, name...)
	out = append(out, 0)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	out = append(out, meta[oldEnd:]...)
	order.PutUint32(out[8:12], uint32(len(out)))
	return out, nil
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

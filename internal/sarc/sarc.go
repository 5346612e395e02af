// Package sarc reads and writes the SARC container format that wraps model
// sub-resources and the shared UI archives.
//
// An archive is parsed into an explicit tree (ordered entries with names and
// payload bytes); all mutation happens on the tree and a single Encode call
// regenerates the byte stream. This keeps patch operations away from manual
// offset arithmetic.
package sarc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

const (
	sarcHeaderLen = 0x14
	sfatHeaderLen = 0x0C
	sfntHeaderLen = 0x08
	nodeLen       = 0x10
	hashKey       = 0x65
	version       = 0x0100

	// DefaultAlign is the payload alignment used when an archive is rebuilt.
	DefaultAlign = 0x80
)

// Entry is one named file inside an archive.
type Entry struct {
	Name string
	Data []byte
}

// Archive is the decoded form of a SARC container.
type Archive struct {
	Entries []Entry
	Align   int
}

// ErrNoEntry is returned when a named entry is absent.
var ErrNoEntry = errors.New("sarc: no such entry")

// Parse decodes a SARC byte stream. The input must be uncompressed; callers
// handle any yaz0 wrapping.
func Parse(data []byte) (*Archive, error) {
	if len(data) < sarcHeaderLen+sfatHeaderLen {
		return nil, fmt.Errorf("sarc: input too small (%d bytes)", len(data))
	}
	if string(data[0:4]) != "SARC" {
		return nil, errors.New("sarc: missing magic")
	}
	le := binary.LittleEndian
	if le.Uint16(data[6:8]) != 0xFEFF {
		return nil, errors.New("sarc: unsupported byte order")
	}
	fileSize := le.Uint32(data[8:12])
	if int(fileSize) > len(data) {
		return nil, fmt.Errorf("sarc: header claims %d bytes, have %d", fileSize, len(data))
	}
	dataOffset := int(le.Uint32(data[12:16]))
	if dataOffset > len(data) {
		return nil, errors.New("sarc: data offset beyond archive")
	}

	sfat := data[sarcHeaderLen:]
	if string(sfat[0:4]) != "SFAT" {
		return nil, errors.New("sarc: missing SFAT block")
	}
	nodeCount := int(le.Uint16(sfat[6:8]))
	nodesStart := sarcHeaderLen + sfatHeaderLen
	namesStart := nodesStart + nodeCount*nodeLen
	if namesStart+sfntHeaderLen > len(data) {
		return nil, errors.New("sarc: node table truncated")
	}
	if string(data[namesStart:namesStart+4]) != "SFNT" {
		return nil, errors.New("sarc: missing SFNT block")
	}
	nameTable := data[namesStart+sfntHeaderLen:]

	arc := &Archive{Entries: make([]Entry, 0, nodeCount), Align: DefaultAlign}
	for i := 0; i < nodeCount; i++ {
		node := data[nodesStart+i*nodeLen:]
		attrs := le.Uint32(node[4:8])
		start := int(le.Uint32(node[8:12]))
		end := int(le.Uint32(node[12:16]))
		if end < start || dataOffset+end > len(data) {
			return nil, fmt.Errorf("sarc: node %d data range out of bounds", i)
		}

		var name string
		if attrs&0x01000000 != 0 {
			nameOff := int(attrs&0x00FFFFFF) * 4
			if nameOff >= len(nameTable) {
				return nil, fmt.Errorf("sarc: node %d name offset out of bounds", i)
			}
			name = cstring(nameTable[nameOff:])
		}

		payload := make([]byte, end-start)
		copy(payload, data[dataOffset+start:dataOffset+end])
		arc.Entries = append(arc.Entries, Entry{Name: name, Data: payload})
	}
	return arc, nil
}

// Entry returns the named entry, if present.
func (a *Archive) Entry(name string) (*Entry, bool) {
	for i := range a.Entries {
		if a.Entries[i].Name == name {
			return &a.Entries[i], true
		}
	}
	return nil, false
}

// Replace swaps the payload of the named entry.
func (a *Archive) Replace(name string, data []byte) error {
	entry, ok := a.Entry(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoEntry, name)
	}
	entry.Data = data
	return nil
}

// Names returns entry names in archive order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.Entries))
	for i, e := range a.Entries {
		names[i] = e.Name
	}
	return names
}

// Encode regenerates the archive bytes. Nodes are emitted in name-hash order
// as the format requires; payloads are aligned to the archive's alignment.
func (a *Archive) Encode() []byte {
	align := a.Align
	if align <= 0 {
		align = DefaultAlign
	}

	ordered := make([]int, len(a.Entries))
	for i := range ordered {
		ordered[i] = i
	}
	sort.SliceStable(ordered, func(x, y int) bool {
		return hashName(a.Entries[ordered[x]].Name) < hashName(a.Entries[ordered[y]].Name)
	})

	// Name table with 4-byte slot alignment.
	nameOffsets := make(map[int]int, len(a.Entries))
	var names []byte
	for _, idx := range ordered {
		nameOffsets[idx] = len(names)
		names = append(names, a.Entries[idx].Name...)
		names = append(names, 0)
		for len(names)%4 != 0 {
			names = append(names, 0)
		}
	}

	headerEnd := sarcHeaderLen + sfatHeaderLen + len(a.Entries)*nodeLen + sfntHeaderLen + len(names)
	dataOffset := alignUp(headerEnd, align)

	// Lay out payloads.
	type span struct{ start, end int }
	spans := make(map[int]span, len(a.Entries))
	cursor := 0
	for _, idx := range ordered {
		cursor = alignUp(cursor, align)
		payload := a.Entries[idx].Data
		spans[idx] = span{start: cursor, end: cursor + len(payload)}
		cursor += len(payload)
	}
	total := dataOffset + cursor

	le := binary.LittleEndian
	out := make([]byte, total)
	copy(out[0:4], "SARC")
	le.PutUint16(out[4:6], sarcHeaderLen)
	le.PutUint16(out[6:8], 0xFEFF)
	le.PutUint32(out[8:12], uint32(total))
	le.PutUint32(out[12:16], uint32(dataOffset))
	le.PutUint16(out[16:18], version)

	sfat := out[sarcHeaderLen:]
	copy(sfat[0:4], "SFAT")
	le.PutUint16(sfat[4:6], sfatHeaderLen)
	le.PutUint16(sfat[6:8], uint16(len(a.Entries)))
	le.PutUint32(sfat[8:12], hashKey)

	nodesStart := sarcHeaderLen + sfatHeaderLen
	for i, idx := range ordered {
		node := out[nodesStart+i*nodeLen:]
		le.PutUint32(node[0:4], hashName(a.Entries[idx].Name))
		le.PutUint32(node[4:8], 0x01000000|uint32(nameOffsets[idx]/4))
		le.PutUint32(node[8:12], uint32(spans[idx].start))
		le.PutUint32(node[12:16], uint32(spans[idx].end))
	}

	namesStart := nodesStart + len(a.Entries)*nodeLen
	copy(out[namesStart:namesStart+4], "SFNT")
	le.PutUint16(out[namesStart+4:namesStart+6], sfntHeaderLen)
	copy(out[namesStart+sfntHeaderLen:], names)

	for _, idx := range ordered {
		copy(out[dataOffset+spans[idx].start:], a.Entries[idx].Data)
	}
	return out
}

func hashName(name string) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*hashKey + uint32(name[i])
	}
	return h
}

func cstring(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

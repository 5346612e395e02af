package boneinject

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Model sub-resources open with an FMDL tag followed by the model name and
// the bone table. Bytes after the bone table are preserved verbatim.

const modelMagic = "FMDL"

// transform components per bone record: scale3 + rotate4 + translate3.
const transformFloats = 10

// Model is the decoded bone-table view of one model sub-resource.
type Model struct {
	Name  string
	Bones []Bone

	rest []byte
}

// ParseModel decodes a model sub-resource.
func ParseModel(data []byte) (*Model, error) {
	if len(data) < len(modelMagic)+2 || string(data[:4]) != modelMagic {
		return nil, errors.New("not a model sub-resource")
	}
	offset := 4

	name, n, err := readString(data, offset)
	if err != nil {
		return nil, fmt.Errorf("model name: %w", err)
	}
	offset += n

	if offset+2 > len(data) {
		return nil, errors.New("truncated bone count")
	}
	count := int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2

	model := &Model{Name: name, Bones: make([]Bone, 0, count)}
	for i := 0; i < count; i++ {
		boneName, n, err := readString(data, offset)
		if err != nil {
			return nil, fmt.Errorf("bone %d name: %w", i, err)
		}
		offset += n

		if offset+2+transformFloats*4 > len(data) {
			return nil, fmt.Errorf("bone %d: truncated record", i)
		}
		parent := int16(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2

		floats := make([]float32, transformFloats)
		for j := range floats {
			floats[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
			offset += 4
		}
		model.Bones = append(model.Bones, Bone{
			Name:      boneName,
			Parent:    parent,
			Scale:     floats[0:3],
			Rotate:    floats[3:7],
			Translate: floats[7:10],
		})
	}

	model.rest = append([]byte(nil), data[offset:]...)
	return model, nil
}

// Encode regenerates the sub-resource bytes. An untouched parse round-trips
// byte-identically.
func (m *Model) Encode() []byte {
	out := make([]byte, 0, 64+len(m.rest))
	out = append(out, modelMagic...)
	out = appendString(out, m.Name)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(m.Bones)))
	for _, bone := range m.Bones {
		out = appendString(out, bone.Name)
		out = binary.LittleEndian.AppendUint16(out, uint16(bone.Parent))
		for _, f := range boneTransform(bone) {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
	}
	return append(out, m.rest...)
}

// HasBone reports whether the bone table contains the name.
func (m *Model) HasBone(name string) bool {
	for _, bone := range m.Bones {
		if bone.Name == name {
			return true
		}
	}
	return false
}

// AppendBone adds a record to the end of the bone table.
func (m *Model) AppendBone(bone Bone) {
	m.Bones = append(m.Bones, bone)
}

// boneTransform flattens the bone's transform into the fixed 10-float layout,
// defaulting missing components to identity.
func boneTransform(bone Bone) []float32 {
	floats := make([]float32, transformFloats)
	copy(floats[0:3], padFloats(bone.Scale, []float32{1, 1, 1}))
	copy(floats[3:7], padFloats(bone.Rotate, []float32{0, 0, 0, 1}))
	copy(floats[7:10], padFloats(bone.Translate, []float32{0, 0, 0}))
	return floats
}

func padFloats(values, defaults []float32) []float32 {
	out := append([]float32(nil), defaults...)
	copy(out, values)
	return out
}

func readString(data []byte, offset int) (string, int, error) {
	if offset+2 > len(data) {
		return "", 0, errors.New("truncated length prefix")
	}
	length := int(binary.LittleEndian.Uint16(data[offset:]))
	if offset+2+length > len(data) {
		return "", 0, errors.New("truncated string")
	}
	return string(data[offset+2 : offset+2+length]), 2 + length, nil
}

func appendString(out []byte, s string) []byte {
	out = binary.LittleEndian.AppendUint16(out, uint16(len(s)))
	return append(out, s...)
}

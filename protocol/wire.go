// Package protocol defines the CM wire messages used by steamclient,
// steamsession and steamapi, and encodes/decodes them with
// google.golang.org/protobuf/encoding/protowire.
//
// There is no .proto source behind this package: the upstream Steam
// protobuf schemas are not redistributable, so messages are declared
// directly as Go structs with explicit field numbers and (de)serialized
// by hand using the same wire primitives protoc-gen-go would emit.
// Marshal/Unmarshal below are deliberately shaped like
// google.golang.org/protobuf/proto's top-level functions so call sites
// read the same way.
package protocol

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every type in this package.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(b []byte) error
}

// Marshal serializes m to its wire representation.
func Marshal(m Message) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return m.Marshal()
}

// Unmarshal parses b into m.
func Unmarshal(b []byte, m Message) error {
	return m.Unmarshal(b)
}

// Scalar pointer helpers, mirroring proto.Bool/proto.Int32/etc so message
// literals read the same as they would against generated code.

func Bool(v bool) *bool       { return &v }
func Int32(v int32) *int32    { return &v }
func Uint32(v uint32) *uint32 { return &v }
func Int64(v int64) *int64    { return &v }
func Uint64(v uint64) *uint64 { return &v }
func String(v string) *string { return &v }
func Float32(v float32) *float32 { return &v }

func boolToVarint(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func appendOptBool(b []byte, num protowire.Number, v *bool) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, boolToVarint(*v))
}

func appendOptInt32(b []byte, num protowire.Number, v *int32) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(uint32(*v)))
}

func appendOptUint32(b []byte, num protowire.Number, v *uint32) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(*v))
}

func appendOptInt64(b []byte, num protowire.Number, v *int64) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(*v))
}

func appendOptUint64(b []byte, num protowire.Number, v *uint64) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, *v)
}

func appendOptString(b []byte, num protowire.Number, v *string) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, *v)
}

func appendOptBytes(b []byte, num protowire.Number, v []byte) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendOptFloat32(b []byte, num protowire.Number, v *float32) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(*v))
}

func appendMessage(b []byte, num protowire.Number, m Message) []byte {
	if m == nil {
		return b
	}
	sub, err := m.Marshal()
	if err != nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

// consumeField reads one (number, value-bytes) pair starting at b,
// returning the remaining buffer. typ carries the wire type so
// callers can decode the right shape.
func consumeField(b []byte) (num protowire.Number, typ protowire.Type, val []byte, rest []byte, err error) {
	n, t, tagLen := protowire.ConsumeTag(b)
	if tagLen < 0 {
		return 0, 0, nil, nil, fmt.Errorf("protocol: bad tag: %w", protowire.ParseError(tagLen))
	}
	b = b[tagLen:]
	switch t {
	case protowire.VarintType:
		_, n2 := protowire.ConsumeVarint(b)
		if n2 < 0 {
			return 0, 0, nil, nil, fmt.Errorf("protocol: bad varint: %w", protowire.ParseError(n2))
		}
		return n, t, b[:n2], b[n2:], nil
	case protowire.Fixed32Type:
		_, n2 := protowire.ConsumeFixed32(b)
		if n2 < 0 {
			return 0, 0, nil, nil, fmt.Errorf("protocol: bad fixed32: %w", protowire.ParseError(n2))
		}
		return n, t, b[:n2], b[n2:], nil
	case protowire.Fixed64Type:
		_, n2 := protowire.ConsumeFixed64(b)
		if n2 < 0 {
			return 0, 0, nil, nil, fmt.Errorf("protocol: bad fixed64: %w", protowire.ParseError(n2))
		}
		return n, t, b[:n2], b[n2:], nil
	case protowire.BytesType:
		v, n2 := protowire.ConsumeBytes(b)
		if n2 < 0 {
			return 0, 0, nil, nil, fmt.Errorf("protocol: bad bytes: %w", protowire.ParseError(n2))
		}
		return n, t, v, b[n2:], nil
	default:
		n2 := protowire.ConsumeFieldValue(n, t, b)
		if n2 < 0 {
			return 0, 0, nil, nil, fmt.Errorf("protocol: bad field: %w", protowire.ParseError(n2))
		}
		return n, t, b[:n2], b[n2:], nil
	}
}

func varintVal(val []byte) uint64 {
	v, _ := protowire.ConsumeVarint(val)
	return v
}

func fixed32Val(val []byte) uint32 {
	v, _ := protowire.ConsumeFixed32(val)
	return v
}

func fixed64Val(val []byte) uint64 {
	v, _ := protowire.ConsumeFixed64(val)
	return v
}

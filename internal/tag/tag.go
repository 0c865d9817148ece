// internal/tag/tag.go
package tag

import "fmt"

// Kind is the on-wire type of a signal.
type Kind uint8

const (
	KindBool Kind = iota
	KindByte
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindFloat32
)

// ParseKind maps a config type name to a Kind.
// PLC vocabulary is accepted alongside the plain names:
// real=float32, int=int16, dint=int32, word=uint16, dword=uint32.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "bool":
		return KindBool, nil
	case "byte":
		return KindByte, nil
	case "int", "int16":
		return KindInt16, nil
	case "word", "uint16":
		return KindUint16, nil
	case "dint", "int32":
		return KindInt32, nil
	case "dword", "uint32":
		return KindUint32, nil
	case "real", "float32":
		return KindFloat32, nil
	}
	return 0, fmt.Errorf("tag: unknown type %q", s)
}

// Width returns the number of bytes the kind occupies in a block.
func (k Kind) Width() int {
	switch k {
	case KindBool, KindByte:
		return 1
	case KindInt16, KindUint16:
		return 2
	default:
		return 4
	}
}

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindByte:
		return "byte"
	case KindInt16:
		return "int16"
	case KindUint16:
		return "uint16"
	case KindInt32:
		return "int32"
	case KindUint32:
		return "uint32"
	case KindFloat32:
		return "float32"
	}
	return "unknown"
}

// Tag describes where a signal lives and how to decode it.
// Geometry and type only: no device, no transport.
type Tag struct {
	Name   string
	Block  int // data block id (S7 DB number, Modbus base register)
	Offset int // byte offset inside the block
	Kind   Kind
	Bit    int // bit index 0..7, bool kind only
}

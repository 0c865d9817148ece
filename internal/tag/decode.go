// internal/tag/decode.go
package tag

import (
	"encoding/binary"
	"math"
	"time"
)

// Decode extracts one sample from a raw block image.
// raw starts at byte 0 of the block, so t.Offset indexes it directly.
// All multi-byte kinds are big-endian. No IO. No side effects.
//
// A window too short for the tag yields an invalid sample, never a panic:
// short reads are a device fault, not a caller bug.
func Decode(raw []byte, t Tag, at time.Time) Sample {
	if t.Offset < 0 || t.Offset+t.Kind.Width() > len(raw) {
		return Sample{At: at}
	}
	b := raw[t.Offset:]

	var v Value
	switch t.Kind {
	case KindBool:
		if t.Bit < 0 || t.Bit > 7 {
			return Sample{At: at}
		}
		v = BoolValue(b[0]&(1<<uint(t.Bit)) != 0)
	case KindByte:
		v = IntValue(int64(b[0]))
	case KindInt16:
		v = IntValue(int64(int16(binary.BigEndian.Uint16(b))))
	case KindUint16:
		v = IntValue(int64(binary.BigEndian.Uint16(b)))
	case KindInt32:
		v = IntValue(int64(int32(binary.BigEndian.Uint32(b))))
	case KindUint32:
		v = IntValue(int64(binary.BigEndian.Uint32(b)))
	case KindFloat32:
		v = FloatValue(float64(math.Float32frombits(binary.BigEndian.Uint32(b))))
	default:
		return Sample{At: at}
	}

	return Sample{At: at, Value: v}
}

// internal/driver/sim/sim.go
package sim

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"plcview/internal/tag"
)

// Conn synthesizes plausible block images so the full pipeline can run
// without hardware. Values are smooth functions of elapsed time with a
// per-tag phase, which makes charts readable and tests deterministic
// enough to assert on ranges.
type Conn struct {
	start  time.Time
	blocks map[int][]tag.Tag
}

// Dial never fails: there is nothing to connect to.
func Dial(tags []tag.Tag) *Conn {
	byBlock := make(map[int][]tag.Tag)
	for _, t := range tags {
		byBlock[t.Block] = append(byBlock[t.Block], t)
	}
	return &Conn{start: time.Now(), blocks: byBlock}
}

// ReadBlock renders the requested window of the block image.
func (c *Conn) ReadBlock(ctx context.Context, block, offset, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 || length <= 0 {
		return nil, nil
	}

	img := make([]byte, offset+length)
	elapsed := time.Since(c.start).Seconds()
	for _, t := range c.blocks[block] {
		if t.Offset < 0 || t.Offset+t.Kind.Width() > len(img) {
			continue
		}
		render(img[t.Offset:], t, elapsed)
	}
	return img[offset : offset+length], nil
}

func (c *Conn) Close() error { return nil }

func render(b []byte, t tag.Tag, elapsed float64) {
	phase := float64(t.Block%13)*0.9 + float64(t.Offset%17)*0.7

	switch t.Kind {
	case tag.KindBool:
		if math.Sin(elapsed/3+phase) > 0 {
			b[0] |= 1 << uint(t.Bit)
		}
	case tag.KindByte:
		b[0] = byte(100 + 80*math.Sin(elapsed/4+phase))
	case tag.KindInt16, tag.KindUint16:
		binary.BigEndian.PutUint16(b, uint16(500+400*math.Sin(elapsed/5+phase)))
	case tag.KindInt32, tag.KindUint32:
		binary.BigEndian.PutUint32(b, uint32(100000+90000*math.Sin(elapsed/7+phase)))
	case tag.KindFloat32:
		binary.BigEndian.PutUint32(b, math.Float32bits(float32(50+25*math.Sin(elapsed/4+phase))))
	}
}

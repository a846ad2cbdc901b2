package mgram

import (
	"bytes"
	"math/bits"

	"github.com/ostafen/lmtrie/internal/wordindex"
)

// IDCodec packs word id tuples into byte strings. Each word takes the same
// number of bytes, enough to hold the largest id, in big-endian order, so
// byte order matches the component-wise order of the tuples.
type IDCodec struct {
	width int
}

func NewIDCodec(maxID wordindex.WordID) IDCodec {
	width := (bits.Len64(uint64(maxID)) + 7) / 8
	return IDCodec{width: max(width, 1)}
}

// Width returns the number of bytes used per word.
func (c IDCodec) Width() int { return c.width }

// Len returns the size of a packed id of the given level.
func (c IDCodec) Len(level int) int { return level * c.width }

// Append appends the packed form of ids to dst.
func (c IDCodec) Append(dst []byte, ids []wordindex.WordID) []byte {
	for _, id := range ids {
		for shift := (c.width - 1) * 8; shift >= 0; shift -= 8 {
			dst = append(dst, byte(uint64(id)>>shift))
		}
	}
	return dst
}

// Decode unpacks a packed id of the given level.
func (c IDCodec) Decode(id []byte, level int) []wordindex.WordID {
	ids := make([]wordindex.WordID, level)
	for i := range ids {
		var v uint64
		for _, b := range id[i*c.width : (i+1)*c.width] {
			v = v<<8 | uint64(b)
		}
		ids[i] = wordindex.WordID(v)
	}
	return ids
}

// Compare orders two packed ids of the given level.
func (c IDCodec) Compare(level int, a, b []byte) int {
	n := c.Len(level)
	return bytes.Compare(a[:n], b[:n])
}

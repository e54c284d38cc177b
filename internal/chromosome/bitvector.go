package chromosome

import (
	"fmt"
	"math/bits"
	"math/rand"
	"strings"
)

// BitVector is a fixed-width bit string packed into 64-bit words. Bit 0 is
// the least significant bit of the first word. Every operation returns a new
// vector and leaves the receiver untouched, so vectors can be shared between
// populations without copying.
type BitVector struct {
	width int
	words []uint64
}

// New returns an all-zero vector of the given width.
func New(width int) BitVector {
	if width < 0 {
		width = 0
	}
	return BitVector{width: width, words: make([]uint64, wordCount(width))}
}

// Random draws a vector uniformly from [0, 2^width - 1].
func Random(rng *rand.Rand, width int) BitVector {
	v := New(width)
	for i := range v.words {
		v.words[i] = rng.Uint64()
	}
	v.trim()
	return v
}

// LowMask returns a vector of the given width whose bits [0, k) are set.
func LowMask(width, k int) BitVector {
	v := New(width)
	if k <= 0 {
		return v
	}
	if k > width {
		k = width
	}
	full := k / 64
	for i := 0; i < full; i++ {
		v.words[i] = ^uint64(0)
	}
	if rem := k % 64; rem != 0 {
		v.words[full] = (uint64(1) << uint(rem)) - 1
	}
	return v
}

// FromUint64 builds a vector holding value, truncated to width bits.
func FromUint64(width int, value uint64) BitVector {
	v := New(width)
	if len(v.words) > 0 {
		v.words[0] = value
	}
	v.trim()
	return v
}

func (v BitVector) Width() int {
	return v.width
}

func (v BitVector) Clone() BitVector {
	out := BitVector{width: v.width, words: make([]uint64, len(v.words))}
	copy(out.words, v.words)
	return out
}

// Bit reports whether bit i is set. Out-of-range indexes read as zero.
func (v BitVector) Bit(i int) bool {
	if i < 0 || i >= v.width {
		return false
	}
	return v.words[i/64]&(uint64(1)<<uint(i%64)) != 0
}

// WithBit returns a copy with bit i set to the given value.
func (v BitVector) WithBit(i int, set bool) BitVector {
	v.checkIndex(i)
	out := v.Clone()
	mask := uint64(1) << uint(i%64)
	if set {
		out.words[i/64] |= mask
	} else {
		out.words[i/64] &^= mask
	}
	return out
}

// Flip returns a copy with bit i inverted.
func (v BitVector) Flip(i int) BitVector {
	v.checkIndex(i)
	out := v.Clone()
	out.words[i/64] ^= uint64(1) << uint(i%64)
	return out
}

func (v BitVector) And(o BitVector) BitVector {
	v.checkWidth(o)
	out := New(v.width)
	for i := range out.words {
		out.words[i] = v.words[i] & o.words[i]
	}
	return out
}

func (v BitVector) Or(o BitVector) BitVector {
	v.checkWidth(o)
	out := New(v.width)
	for i := range out.words {
		out.words[i] = v.words[i] | o.words[i]
	}
	return out
}

func (v BitVector) Xor(o BitVector) BitVector {
	v.checkWidth(o)
	out := New(v.width)
	for i := range out.words {
		out.words[i] = v.words[i] ^ o.words[i]
	}
	return out
}

func (v BitVector) Not() BitVector {
	out := New(v.width)
	for i := range out.words {
		out.words[i] = ^v.words[i]
	}
	out.trim()
	return out
}

// ShiftLeft moves every bit k positions towards the most significant end.
// Bits pushed past the width are dropped.
func (v BitVector) ShiftLeft(k int) BitVector {
	if k < 0 {
		return v.ShiftRight(-k)
	}
	out := New(v.width)
	if k >= v.width {
		return out
	}
	ws, bs := k/64, uint(k%64)
	for i := len(out.words) - 1; i >= ws; i-- {
		src := i - ws
		val := v.words[src] << bs
		if bs > 0 && src > 0 {
			val |= v.words[src-1] >> (64 - bs)
		}
		out.words[i] = val
	}
	out.trim()
	return out
}

// ShiftRight moves every bit k positions towards bit 0.
func (v BitVector) ShiftRight(k int) BitVector {
	if k < 0 {
		return v.ShiftLeft(-k)
	}
	out := New(v.width)
	if k >= v.width {
		return out
	}
	ws, bs := k/64, uint(k%64)
	for i := 0; i+ws < len(v.words); i++ {
		src := i + ws
		val := v.words[src] >> bs
		if bs > 0 && src+1 < len(v.words) {
			val |= v.words[src+1] << (64 - bs)
		}
		out.words[i] = val
	}
	return out
}

// Chunk reads length bits starting at offset as an unsigned integer.
func (v BitVector) Chunk(offset, length int) uint64 {
	v.checkRange(offset, length)
	w, off := offset/64, uint(offset%64)
	out := v.words[w] >> off
	if int(off)+length > 64 && w+1 < len(v.words) {
		out |= v.words[w+1] << (64 - off)
	}
	if length < 64 {
		out &= (uint64(1) << uint(length)) - 1
	}
	return out
}

// WithChunk returns a copy whose bits [offset, offset+length) hold value.
// Bits of value above length are ignored.
func (v BitVector) WithChunk(offset, length int, value uint64) BitVector {
	v.checkRange(offset, length)
	out := v.Clone()
	for b := 0; b < length; b++ {
		i := offset + b
		mask := uint64(1) << uint(i%64)
		if (value>>uint(b))&1 == 1 {
			out.words[i/64] |= mask
		} else {
			out.words[i/64] &^= mask
		}
	}
	return out
}

func (v BitVector) OnesCount() int {
	n := 0
	for _, w := range v.words {
		n += bits.OnesCount64(w)
	}
	return n
}

func (v BitVector) IsZero() bool {
	for _, w := range v.words {
		if w != 0 {
			return false
		}
	}
	return true
}

func (v BitVector) Equal(o BitVector) bool {
	if v.width != o.width {
		return false
	}
	for i := range v.words {
		if v.words[i] != o.words[i] {
			return false
		}
	}
	return true
}

// String renders the vector most significant bit first, one character per bit.
func (v BitVector) String() string {
	var b strings.Builder
	b.Grow(v.width)
	for i := v.width - 1; i >= 0; i-- {
		if v.Bit(i) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Parse reads the String form back; the width is the string length.
func Parse(s string) (BitVector, error) {
	v := New(len(s))
	for pos, r := range s {
		i := len(s) - 1 - pos
		switch r {
		case '0':
		case '1':
			v.words[i/64] |= uint64(1) << uint(i%64)
		default:
			return BitVector{}, fmt.Errorf("invalid bit %q at position %d", r, pos)
		}
	}
	return v, nil
}

func (v BitVector) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *BitVector) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v *BitVector) trim() {
	if rem := v.width % 64; rem != 0 && len(v.words) > 0 {
		v.words[len(v.words)-1] &= (uint64(1) << uint(rem)) - 1
	}
}

func (v BitVector) checkIndex(i int) {
	if i < 0 || i >= v.width {
		panic(fmt.Sprintf("chromosome: bit index %d out of range [0,%d)", i, v.width))
	}
}

func (v BitVector) checkRange(offset, length int) {
	if length < 1 || length > 64 || offset < 0 || offset+length > v.width {
		panic(fmt.Sprintf("chromosome: chunk [%d,%d) out of range for width %d", offset, offset+length, v.width))
	}
}

func (v BitVector) checkWidth(o BitVector) {
	if v.width != o.width {
		panic(fmt.Sprintf("chromosome: width mismatch %d != %d", v.width, o.width))
	}
}

func wordCount(width int) int {
	return (width + 63) / 64
}

package chromosome

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand"
)

var ErrInvalidLayout = errors.New("invalid chromosome layout")

// Layout describes how one candidate matching is packed into a BitVector:
// one chunk per scheduled slot, each chunk wide enough to hold every dose
// index plus the "no match" value.
type Layout struct {
	slots       int
	doses       int
	chunkLength int
}

// ChunkLength is the number of bits needed to store the values [0, doses],
// i.e. ceil(log2(doses+1)).
func ChunkLength(doses int) int {
	if doses <= 0 {
		return 0
	}
	return bits.Len(uint(doses))
}

func NewLayout(slots, doses int) (Layout, error) {
	if slots < 1 {
		return Layout{}, fmt.Errorf("%w: need at least one scheduled slot, got %d", ErrInvalidLayout, slots)
	}
	if doses < 1 {
		return Layout{}, fmt.Errorf("%w: need at least one dose, got %d", ErrInvalidLayout, doses)
	}
	chunkLength := ChunkLength(doses)
	if chunkLength > 64 {
		return Layout{}, fmt.Errorf("%w: chunk length %d exceeds 64 bits", ErrInvalidLayout, chunkLength)
	}
	return Layout{slots: slots, doses: doses, chunkLength: chunkLength}, nil
}

func (l Layout) Slots() int {
	return l.slots
}

func (l Layout) Doses() int {
	return l.doses
}

func (l Layout) ChunkLength() int {
	return l.chunkLength
}

// Width is the total chromosome width M = slots * chunk length.
func (l Layout) Width() int {
	return l.slots * l.chunkLength
}

// NoMatch is the slot value meaning "no dose matched".
func (l Layout) NoMatch() uint64 {
	return uint64(l.doses)
}

// MaxValue is the largest value a chunk can physically hold.
func (l Layout) MaxValue() uint64 {
	if l.chunkLength >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(l.chunkLength)) - 1
}

func (l Layout) Slot(v BitVector, i int) uint64 {
	return v.Chunk(i*l.chunkLength, l.chunkLength)
}

func (l Layout) WithSlot(v BitVector, i int, value uint64) BitVector {
	return v.WithChunk(i*l.chunkLength, l.chunkLength, value)
}

// Decode unpacks every slot value in slot order. Values above NoMatch are
// returned as-is; interpreting them is the cost evaluator's job.
func (l Layout) Decode(v BitVector) []uint64 {
	if v.Width() != l.Width() {
		panic(fmt.Sprintf("chromosome: decode width %d, layout width %d", v.Width(), l.Width()))
	}
	out := make([]uint64, l.slots)
	for i := range out {
		out[i] = l.Slot(v, i)
	}
	return out
}

func (l Layout) Encode(values []uint64) (BitVector, error) {
	if len(values) != l.slots {
		return BitVector{}, fmt.Errorf("encode: got %d values for %d slots", len(values), l.slots)
	}
	v := New(l.Width())
	for i, value := range values {
		if value > l.MaxValue() {
			return BitVector{}, fmt.Errorf("encode: slot %d value %d exceeds %d bits", i, value, l.chunkLength)
		}
		v = l.WithSlot(v, i, value)
	}
	return v, nil
}

func (l Layout) Random(rng *rand.Rand) BitVector {
	return Random(rng, l.Width())
}

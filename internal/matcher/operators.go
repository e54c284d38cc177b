package matcher

import (
	"math/rand"

	"schedulematch/internal/chromosome"
)

// CrossoverAt splits both parents at bit index. The first offspring takes
// p1's bits at positions >= index and p2's below it; the second takes the
// complementary halves. Chunk boundaries are ignored.
func CrossoverAt(p1, p2 chromosome.BitVector, index int) (chromosome.BitVector, chromosome.BitVector) {
	low := chromosome.LowMask(p1.Width(), index)
	high := low.Not()
	offspring1 := p1.And(high).Or(p2.And(low))
	offspring2 := p1.And(low).Or(p2.And(high))
	return offspring1, offspring2
}

// Crossover is one-point crossover at an index drawn from [1, width-1].
// A one-bit chromosome has no interior point and the parents pass through.
func Crossover(rng *rand.Rand, p1, p2 chromosome.BitVector) (chromosome.BitVector, chromosome.BitVector) {
	width := p1.Width()
	if width < 2 {
		return p1, p2
	}
	return CrossoverAt(p1, p2, 1+rng.Intn(width-1))
}

func MutateAt(c chromosome.BitVector, point int) chromosome.BitVector {
	return c.Flip(point)
}

// Mutate flips exactly one uniformly chosen bit.
func Mutate(rng *rand.Rand, c chromosome.BitVector) chromosome.BitVector {
	return MutateAt(c, rng.Intn(c.Width()))
}

package chromosome

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkLengthLeavesRoomForNoMatch(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 7: 3, 8: 4, 15: 4, 16: 5}
	for doses, want := range cases {
		got := ChunkLength(doses)
		assert.Equal(t, want, got, "doses=%d", doses)
		assert.GreaterOrEqual(t, uint64(1)<<uint(got)-1, uint64(doses), "no-match value must fit for doses=%d", doses)
	}
}

func TestNewLayoutRejectsEmptySequences(t *testing.T) {
	_, err := NewLayout(0, 3)
	require.True(t, errors.Is(err, ErrInvalidLayout))

	_, err = NewLayout(3, 0)
	require.True(t, errors.Is(err, ErrInvalidLayout))
}

func TestLayoutReferenceExampleWidth(t *testing.T) {
	l, err := NewLayout(8, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, l.ChunkLength())
	assert.Equal(t, 24, l.Width())
	assert.Equal(t, uint64(7), l.NoMatch())
	assert.Equal(t, uint64(7), l.MaxValue())
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	l, err := NewLayout(9, 12)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 500; i++ {
		v := l.Random(rng)
		values := l.Decode(v)
		require.Len(t, values, l.Slots())
		for _, value := range values {
			require.LessOrEqual(t, value, l.MaxValue())
		}

		encoded, err := l.Encode(values)
		require.NoError(t, err)
		require.True(t, encoded.Equal(v), "round trip changed %s into %s", v, encoded)
	}
}

func TestDecodeSlotOrder(t *testing.T) {
	l, err := NewLayout(3, 5)
	require.NoError(t, err)

	v, err := l.Encode([]uint64{1, 5, 7})
	require.NoError(t, err)
	assert.Equal(t, "111101001", v.String())
	assert.Equal(t, []uint64{1, 5, 7}, l.Decode(v))
	assert.Equal(t, uint64(5), l.Slot(v, 1))
}

func TestEncodeRejectsBadInput(t *testing.T) {
	l, err := NewLayout(2, 3)
	require.NoError(t, err)

	_, err = l.Encode([]uint64{1})
	require.Error(t, err)

	_, err = l.Encode([]uint64{1, 4})
	require.Error(t, err)
}

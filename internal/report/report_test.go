package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedulematch/internal/model"
)

func dose(v float64) *float64 { return &v }

func TestLine(t *testing.T) {
	assert.Equal(t, "5 8", Line(model.Pairing{Scheduled: 5, Dose: dose(8)}))
	assert.Equal(t, "27 NO MATCH", Line(model.Pairing{Scheduled: 27}))
	assert.Equal(t, "2.5 3.75", Line(model.Pairing{Scheduled: 2.5, Dose: dose(3.75)}))
}

func TestWriteGenerationPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	pairings := []model.Pairing{
		{Scheduled: 5, Dose: dose(8)},
		{Scheduled: 7},
	}
	require.NoError(t, p.WriteGeneration(pairings))
	require.NoError(t, p.WriteGeneration(pairings[:1]))

	assert.Equal(t, "5 8\n7 NO MATCH\n\n5 8\n\n", buf.String())
}

func TestWriteGenerationColouredKeepsText(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, true)

	require.NoError(t, p.WriteHeader("generation 1"))
	require.NoError(t, p.WriteGeneration([]model.Pairing{{Scheduled: 7}}))

	out := buf.String()
	assert.Contains(t, out, "generation 1")
	assert.Contains(t, out, NoMatch)
	assert.True(t, strings.HasSuffix(out, "\n\n"))
}

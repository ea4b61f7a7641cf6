package color

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c, err := Parse("#002147")
	require.NoError(t, err)
	assert.Equal(t, RGB{R: 0x00, G: 0x21, B: 0x47}, c)

	c, err = Parse("FE7F00")
	require.NoError(t, err)
	assert.Equal(t, RGB{R: 0xfe, G: 0x7f, B: 0x00}, c)

	for _, bad := range []string{"", "#", "#fff", "#12345g", "#1234567", "##123456", "+12345", " #002147"} {
		_, err := Parse(bad)
		assert.Errorf(t, err, "expected %q to fail", bad)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "#009bce", Normalize("#009BCE"))
	assert.Equal(t, "#1a5750", Normalize(" 1A5750 "))
	assert.Equal(t, "teal", Normalize(" teal "))
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0.0, Distance("#002147", "#002147"))
	assert.Equal(t, 0.0, Distance("#002147", "002147"))
	assert.InDelta(t, 255.0, Distance("#000000", "#ff0000"), 1e-9)
	assert.InDelta(t, math.Sqrt(3*255*255), Distance("#000000", "#FFFFFF"), 1e-9)
	assert.Equal(t, Distance("#009bce", "#1a5750"), Distance("#1a5750", "#009bce"))
}

func TestDistanceUnparseableIsInfinite(t *testing.T) {
	assert.True(t, math.IsInf(Distance("#002147", "navy"), 1))
	assert.True(t, math.IsInf(Distance("", "#002147"), 1))
	assert.False(t, Similar("navy", "navy"))
}

func TestSimilarThreshold(t *testing.T) {
	assert.True(t, Similar("#002147", "#002147"))
	assert.False(t, Similar("#002147", "#fe7f00"))
	// 75 apart on a single channel sits exactly on the threshold and is excluded.
	assert.False(t, Similar("#000000", "#4b0000"))
	assert.True(t, Similar("#000000", "#4a0000"))
}

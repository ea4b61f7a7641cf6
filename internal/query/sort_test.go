package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleDifferentKeyStartsAscending(t *testing.T) {
	spec := SortSpec{Key: SortBrand, Direction: Descending}
	next := spec.Toggle(SortModel)
	assert.Equal(t, SortSpec{Key: SortModel, Direction: Ascending}, next)
	assert.Equal(t, SortSpec{Key: SortModel, Direction: Descending}, next.Toggle(SortModel))
}

func TestParseSortKey(t *testing.T) {
	cases := map[string]SortKey{
		"":         SortBrand,
		"brand":    SortBrand,
		"Model":    SortModel,
		"nibSize":  SortNibSize,
		"nib_size": SortNibSize,
	}
	for raw, want := range cases {
		got, err := ParseSortKey(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseSortKey("color")
	assert.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	for _, raw := range []string{"", "asc", "Ascending"} {
		got, err := ParseDirection(raw)
		require.NoError(t, err)
		assert.Equal(t, Ascending, got)
	}
	for _, raw := range []string{"desc", "DESCENDING"} {
		got, err := ParseDirection(raw)
		require.NoError(t, err)
		assert.Equal(t, Descending, got)
	}
	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

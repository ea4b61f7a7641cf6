package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inked/pkg/domain"
)

func TestViewsResolveInkAndLogo(t *testing.T) {
	inkID := "101"
	c := Collection{
		Pens: []domain.Pen{
			{Base: domain.Base{ID: "1"}, Brand: "Lamy", Model: "Safari", InkID: &inkID},
			{Base: domain.Base{ID: "2"}, Brand: "TWSBI", Model: "Eco"},
		},
		Inks: []domain.Ink{
			{Base: domain.Base{ID: "101"}, Brand: " lamy ", Name: "Blue", Color: "#002147"},
			{Base: domain.Base{ID: "102"}, Brand: "Diamine", Name: "Red", Color: "#aa0000"},
		},
		Logos: map[string]domain.BrandLogo{"lamy": {BrandKey: "lamy", ObjectKey: "brand-logos/bGFteQ"}},
	}

	pens := PenViews(c, PenQuery{Sort: DefaultSort})
	require.Len(t, pens, 2)
	assert.Equal(t, domain.PenInked, pens[0].Status)
	require.NotNil(t, pens[0].Ink)
	assert.Equal(t, "Blue", pens[0].Ink.Name)
	require.NotNil(t, pens[0].Logo)
	assert.Equal(t, domain.PenClean, pens[1].Status)
	assert.Nil(t, pens[1].Ink)
	assert.Nil(t, pens[1].Logo)

	inks := InkViews(c, InkQuery{})
	require.Len(t, inks, 2)
	assert.True(t, inks[0].InUse)
	assert.Equal(t, []string{"1"}, inks[0].PenIDs)
	require.NotNil(t, inks[0].Logo, "logo shared through the normalized brand key")
	assert.False(t, inks[1].InUse)
	assert.Equal(t, []string{}, inks[1].PenIDs)
}

// Package query derives display-ordered pen and ink views from collection
// snapshots. Every function is pure: inputs are never mutated and each call
// returns a fresh slice.
package query

import (
	"sort"
	"strings"

	"inked/pkg/color"
	"inked/pkg/domain"
)

// PenQuery holds the transient pen list parameters.
type PenQuery struct {
	Search string
	Sort   SortSpec
}

// InkQuery holds the transient ink list parameters. An empty Color disables
// the color filter.
type InkQuery struct {
	Search string
	Color  string
}

// FilterPens applies the search filter, then a stable sort on the lower-cased
// value of the selected key.
func FilterPens(pens []domain.Pen, q PenQuery) []domain.Pen {
	term := strings.ToLower(q.Search)
	out := make([]domain.Pen, 0, len(pens))
	for _, p := range pens {
		if term == "" || penMatches(p, term) {
			out = append(out, p)
		}
	}
	order := q.Sort
	if order.Key == "" {
		order = DefaultSort
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := sortValue(out[i], order.Key), sortValue(out[j], order.Key)
		if order.Direction == Descending {
			return a > b
		}
		return a < b
	})
	return out
}

func penMatches(p domain.Pen, term string) bool {
	for _, field := range []string{p.Brand, p.Model, p.Nib.Size, p.Nib.Material, p.Nib.Features} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// sortValue resolves a sort key. nibSize lives on the nested nib, not the pen.
func sortValue(p domain.Pen, key SortKey) string {
	switch key {
	case SortModel:
		return strings.ToLower(p.Model)
	case SortNibSize:
		return strings.ToLower(p.Nib.Size)
	default:
		return strings.ToLower(p.Brand)
	}
}

// FilterInks keeps inks matching the search text and, when a color is
// selected, those perceptually similar to it. Order is insertion order.
func FilterInks(inks []domain.Ink, q InkQuery) []domain.Ink {
	term := strings.ToLower(q.Search)
	out := make([]domain.Ink, 0, len(inks))
	for _, ink := range inks {
		if term != "" && !inkMatches(ink, term) {
			continue
		}
		if q.Color != "" && !color.Similar(ink.Color, q.Color) {
			continue
		}
		out = append(out, ink)
	}
	return out
}

func inkMatches(ink domain.Ink, term string) bool {
	return strings.Contains(strings.ToLower(ink.Brand), term) ||
		strings.Contains(strings.ToLower(ink.Name), term) ||
		strings.Contains(strings.ToLower(ink.Color), term)
}

// InkInUse reports whether any pen is loaded with inkID.
func InkInUse(pens []domain.Pen, inkID string) bool {
	for _, p := range pens {
		if p.HasInk(inkID) {
			return true
		}
	}
	return false
}

// PensUsingInk lists, in collection order, the ids of pens loaded with inkID.
func PensUsingInk(pens []domain.Pen, inkID string) []string {
	var ids []string
	for _, p := range pens {
		if p.HasInk(inkID) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

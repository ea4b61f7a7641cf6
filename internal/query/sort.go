package query

import (
	"fmt"
	"strings"
)

// SortKey names the pen attribute used for ordering.
type SortKey string

// Pens can be ordered by brand, model or nib size.
const (
	SortBrand   SortKey = "brand"
	SortModel   SortKey = "model"
	SortNibSize SortKey = "nibSize"
)

// Direction is the sort direction.
type Direction string

// Sort directions.
const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// SortSpec pairs a key with a direction.
type SortSpec struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders pens by brand, A to Z.
var DefaultSort = SortSpec{Key: SortBrand, Direction: Ascending}

// Toggle returns the spec produced by selecting key: the same key flips the
// direction, a different key starts ascending.
func (s SortSpec) Toggle(key SortKey) SortSpec {
	if s.Key == key {
		return SortSpec{Key: key, Direction: s.Direction.Reverse()}
	}
	return SortSpec{Key: key, Direction: Ascending}
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// ParseSortKey accepts brand, model or nibSize (case-insensitive, nib_size
// also accepted). Empty input yields the default key.
func ParseSortKey(raw string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return DefaultSort.Key, nil
	case "brand":
		return SortBrand, nil
	case "model":
		return SortModel, nil
	case "nibsize", "nib_size":
		return SortNibSize, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", raw)
	}
}

// ParseDirection accepts ascending/asc or descending/desc. Empty input yields ascending.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", raw)
	}
}

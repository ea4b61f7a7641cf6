// Package color compares ink colors in RGB space.
package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SimilarityThreshold is the exclusive RGB distance under which two colors
// count as perceptually similar.
const SimilarityThreshold = 75.0

// RGB holds 8-bit channel values.
type RGB struct {
	R, G, B uint8
}

// Hex renders the color as lower-case #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Parse reads a 6-hex-digit color with an optional leading '#'.
func Parse(s string) (RGB, error) {
	raw := strings.TrimPrefix(s, "#")
	if len(raw) != 6 {
		return RGB{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Normalize returns the canonical #rrggbb form, or the trimmed input when it
// does not parse.
func Normalize(s string) string {
	trimmed := strings.TrimSpace(s)
	c, err := Parse(trimmed)
	if err != nil {
		return trimmed
	}
	return c.Hex()
}

// Distance returns the Euclidean distance between a and b in RGB space.
// Unparseable input is infinitely far from everything.
func Distance(a, b string) float64 {
	ca, err := Parse(a)
	if err != nil {
		return math.Inf(1)
	}
	cb, err := Parse(b)
	if err != nil {
		return math.Inf(1)
	}
	dr := float64(ca.R) - float64(cb.R)
	dg := float64(ca.G) - float64(cb.G)
	db := float64(ca.B) - float64(cb.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Similar reports whether a and b are closer than SimilarityThreshold.
func Similar(a, b string) bool {
	return Distance(a, b) < SimilarityThreshold
}

// Package branding derives the tenant theme (accent colors, readable
// foregrounds, title, favicon) from the upstream settings.
package branding

import (
	"math"
	"strconv"
	"strings"
)

const (
	Black = "#000000"
	White = "#ffffff"

	// luminanceThreshold picks black text above it. This is a coarse cut,
	// not a WCAG contrast computation.
	luminanceThreshold = 0.5
)

// NormalizeHex returns the "#rrggbb" form of a 3- or 6-digit hex color, with
// or without a leading '#'. Any other length or a non-hex digit is rejected.
func NormalizeHex(value string) (string, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return "", false
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return "", false
	}
	return "#" + strings.ToLower(hex), true
}

// rgb returns the channels of a normalized color scaled to [0,1].
func rgb(value string) (r, g, b float64, ok bool) {
	norm, ok := NormalizeHex(value)
	if !ok {
		return 0, 0, 0, false
	}
	n, _ := strconv.ParseUint(norm[1:], 16, 32)
	return float64((n>>16)&0xff) / 255, float64((n>>8)&0xff) / 255, float64(n&0xff) / 255, true
}

func linearize(c float64) float64 {
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// RelativeLuminance computes the sRGB relative luminance of a hex color.
func RelativeLuminance(value string) (float64, bool) {
	r, g, b, ok := rgb(value)
	if !ok {
		return 0, false
	}
	return 0.2126*linearize(r) + 0.7152*linearize(g) + 0.0722*linearize(b), true
}

// DeriveForeground picks black or white text for the given background:
// luminance above 0.5 gives "#000000", anything else "#ffffff". Invalid
// colors report false.
func DeriveForeground(value string) (string, bool) {
	l, ok := RelativeLuminance(value)
	if !ok {
		return "", false
	}
	if l > luminanceThreshold {
		return Black, true
	}
	return White, true
}

// ContrastRatio is the WCAG 2.1 contrast ratio between two colors, in
// [1, 21]. Reported by the theme command; it does not drive DeriveForeground.
func ContrastRatio(a, b string) (float64, bool) {
	la, ok := RelativeLuminance(a)
	if !ok {
		return 0, false
	}
	lb, ok := RelativeLuminance(b)
	if !ok {
		return 0, false
	}
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05), true
}

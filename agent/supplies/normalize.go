// Package supplies converts raw consumable readings into the canonical
// snapshot form: color keys and 0-100 integer percentages.
package supplies

import (
	"math"
	"strconv"
	"strings"

	commonstorage "printmonitor/common/storage"
)

// colorMarkers is checked in order; the first color whose marker appears in
// the lowercased description wins.
var colorMarkers = []struct {
	color   string
	markers []string
}{
	{commonstorage.ColorBlack, []string{"black", "preto"}},
	{commonstorage.ColorCyan, []string{"cyan"}},
	{commonstorage.ColorMagenta, []string{"magenta"}},
	{commonstorage.ColorYellow, []string{"yellow", "amarelo"}},
}

// ClassifyColor maps a colorant or supply description to a canonical color key.
// ok is false for descriptions that name none of the four process colors.
func ClassifyColor(desc string) (color string, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(desc))
	if lower == "" {
		return "", false
	}
	for _, cm := range colorMarkers {
		if containsAny(lower, cm.markers) {
			return cm.color, true
		}
	}
	return "", false
}

// NormalizePercent rescales a raw level to 0-100. Devices report levels as a
// percentage (0-100), an 8-bit scale (101-255) or a 0-10000 scale (256-10000);
// anything else, including negative sentinels, is 0.
func NormalizePercent(v int) int {
	switch {
	case v >= 0 && v <= 100:
		return v
	case v > 100 && v <= 255:
		return clamp(roundPercent(float64(v), 255))
	case v > 255 && v <= 10000:
		return clamp(roundPercent(float64(v), 10000))
	default:
		return 0
	}
}

// NormalizePercentString parses raw and normalizes it; unparseable input is 0.
func NormalizePercentString(raw string) int {
	v, ok := ParseInt(raw)
	if !ok {
		return 0
	}
	return NormalizePercent(v)
}

// CapacityPercent computes round(level/capacity*100) clamped to 0-100.
// A negative level or non-positive capacity (the Printer-MIB "unknown" and
// "other" sentinels) yields 0.
func CapacityPercent(level, capacity int) int {
	if level < 0 || capacity <= 0 {
		return 0
	}
	return clamp(roundPercent(float64(level), float64(capacity)))
}

// ParseInt parses a decimal integer reported by a device, tolerating
// surrounding whitespace.
func ParseInt(raw string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

func roundPercent(v, scale float64) int {
	return int(math.Round(v / scale * 100))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

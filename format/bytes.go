package format

import (
	"fmt"
	"math"
)

const (
	Byte = 1

	KiloByte = Byte * 1000
	MegaByte = KiloByte * 1000
	GigaByte = MegaByte * 1000
	TeraByte = GigaByte * 1000
)

// HumanBytes formats b with a decimal unit, e.g. "4.1 KB".
func HumanBytes(b int64) string {
	var value float64
	var unit string

	switch {
	case b >= TeraByte:
		value, unit = float64(b)/TeraByte, "TB"
	case b >= GigaByte:
		value, unit = float64(b)/GigaByte, "GB"
	case b >= MegaByte:
		value, unit = float64(b)/MegaByte, "MB"
	case b >= KiloByte:
		value, unit = float64(b)/KiloByte, "KB"
	default:
		return fmt.Sprintf("%d B", b)
	}

	switch {
	case value >= 10, value == math.Trunc(value):
		return fmt.Sprintf("%d %s", int(value), unit)
	default:
		return fmt.Sprintf("%.1f %s", value, unit)
	}
}

// Package timegrid produces the canonical hourly grid and aligns
// irregularly-sampled price data onto it.
package timegrid

// HourSeconds is the canonical grid spacing.
const HourSeconds = 3600

// HoursInRange returns the ascending sequence of hour-aligned unix
// timestamps h = ceil(from/3600)*3600 + 3600*k with h <= to.
// Returns an empty sequence when no such point exists.
func HoursInRange(from, to int64) []int64 {
	rounded := from / HourSeconds * HourSeconds
	if rounded < from {
		rounded += HourSeconds
	}

	var hours []int64
	for h := rounded; h <= to; h += HourSeconds {
		hours = append(hours, h)
	}
	return hours
}

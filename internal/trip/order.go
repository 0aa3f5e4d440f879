package trip

import "sort"

// SortStops returns the stops in ascending Order. The sort is stable: stops
// sharing an Order value keep their relative input positions. The input slice
// is not modified.
func SortStops(stops []Stop) []Stop {
	sorted := make([]Stop, len(stops))
	copy(sorted, stops)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	return sorted
}

// NextOrder returns the order value for a stop appended after the given ones.
func NextOrder(stops []Stop) int {
	next := 0
	for _, s := range stops {
		if s.Order >= next {
			next = s.Order + 1
		}
	}
	return next
}

package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Weekday sets are stored as comma-separated sorted integers ("1,3,5").
// Sorting at the encode boundary keeps stored rows comparable regardless of
// definition order.

func encodeWeekdays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	sorted := make([]int, len(days))
	copy(sorted, days)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, d := range sorted {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("malformed stored weekday set %q: %w", s, err)
		}
		days = append(days, d)
	}
	return days, nil
}

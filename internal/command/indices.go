package command

import (
	"sort"
	"strconv"
	"strings"
)

// maxListIndex bounds index lists so a range like 1-999999 cannot expand
// into a huge slice. Fetch windows are far smaller.
const maxListIndex = 1000

// ParseIndexList parses "1,3,5-7" style lists into sorted, de-duplicated
// 1-based positions. Ranges are inclusive and need a <= b.
func ParseIndexList(s string) ([]int, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, false
	}

	seen := make(map[int]struct{})
	for _, f := range fields {
		lo, hi, ok := parseIndexRange(f)
		if !ok {
			return nil, false
		}
		for i := lo; i <= hi; i++ {
			seen[i] = struct{}{}
		}
	}

	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, true
}

func parseIndexRange(f string) (int, int, bool) {
	a, b, isRange := strings.Cut(f, "-")
	lo, ok := parseIndex(a)
	if !ok {
		return 0, 0, false
	}
	if !isRange {
		return lo, lo, true
	}
	hi, ok := parseIndex(b)
	if !ok || lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > maxListIndex {
		return 0, false
	}
	return n, true
}

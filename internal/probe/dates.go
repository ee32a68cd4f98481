package probe

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// The two date shapes found in the source files. Month and day may have one
// or two digits; the year always has four.
var (
	ymdPattern = regexp.MustCompile(`^([0-9]{4})/([0-9]{1,2})/([0-9]{1,2})$`)
	mdyPattern = regexp.MustCompile(`^([0-9]{1,2})/([0-9]{1,2})/([0-9]{4})$`)
)

// isDateLike reports whether s has one of the two date shapes. Digits may be
// from any script.
func isDateLike(s string) bool {
	s = asciiDigits(s)
	return ymdPattern.MatchString(s) || mdyPattern.MatchString(s)
}

// dateSortKey normalizes a date-like string to a zero-padded YYYY/MM/DD key
// in ASCII digits.
func dateSortKey(s string) (string, bool) {
	s = asciiDigits(s)
	if m := ymdPattern.FindStringSubmatch(s); m != nil {
		return sortKey(m[1], m[2], m[3]), true
	}
	if m := mdyPattern.FindStringSubmatch(s); m != nil {
		return sortKey(m[3], m[1], m[2]), true
	}
	return "", false
}

func sortKey(year, month, day string) string {
	mm, _ := strconv.Atoi(month)
	dd, _ := strconv.Atoi(day)
	return fmt.Sprintf("%s/%02d/%02d", year, mm, dd)
}

// DateRange returns the earliest and latest date in values, in their original
// string form (trimmed and unquoted, digits in their own script). Values that match neither date shape
// are skipped. ok is false when nothing matched.
func DateRange(values []string) (start, end string, ok bool) {
	type dated struct {
		orig string
		key  string
	}

	ds := make([]dated, 0, len(values))
	for _, v := range values {
		v = strings.Trim(strings.TrimSpace(v), `"`)
		if k, ok := dateSortKey(v); ok {
			ds = append(ds, dated{orig: v, key: k})
		}
	}
	if len(ds) == 0 {
		return "", "", false
	}

	sort.SliceStable(ds, func(i, j int) bool { return ds[i].key < ds[j].key })
	return ds[0].orig, ds[len(ds)-1].orig, true
}

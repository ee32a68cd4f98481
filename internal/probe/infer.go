package probe

import (
	"strings"

	"registry/internal/catalog"
)

// typeThreshold is the share of the sample a type must reach to win.
const typeThreshold = 0.8

// InferType classifies a column from a sample of non-null values.
//
// Each value is counted as a date if it matches YYYY/M/D or M/D/YYYY, else as
// a float if it parses as a number with a decimal point or a percent suffix,
// else as an integer if it parses as a number. Other values are not counted.
// The checks then run in a fixed order: date, integer, decimal (integers and
// floats together), and text when nothing reaches 80% of the sample. An
// empty sample is text.
func InferType(sample []string) catalog.DataType {
	if len(sample) == 0 {
		return catalog.TypeText
	}

	var dates, ints, floats int
	for _, v := range sample {
		s := stripValue(v)

		if isDateLike(s) {
			dates++
			continue
		}

		num := strings.TrimSuffix(s, "%")
		if _, ok := parseFloat(num); !ok {
			continue
		}
		if strings.Contains(num, ".") || strings.HasSuffix(s, "%") {
			floats++
		} else {
			ints++
		}
	}

	threshold := typeThreshold * float64(len(sample))
	switch {
	case float64(dates) >= threshold:
		return catalog.TypeDate
	case float64(ints) >= threshold:
		return catalog.TypeInteger
	case float64(ints+floats) >= threshold:
		return catalog.TypeDecimal
	default:
		return catalog.TypeText
	}
}

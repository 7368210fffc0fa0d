package cutout

import (
	"fmt"
	"strings"
	"time"
)

// isoLayout matches the second-resolution ISO-8601 form the toolkit uses
// for timestamp pairs.
const isoLayout = "2006-01-02T15:04:05"

// NormalizeTimeSpec renders a configured time value in canonical string
// form. List-valued specs are joined with "|"; scalars (period tags or bare
// years) are stringified.
func NormalizeTimeSpec(value any) string {
	switch list := value.(type) {
	case []any:
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, "|")
	case []string:
		return strings.Join(list, "|")
	default:
		return fmt.Sprint(value)
	}
}

// InferTimeSpec collapses an observed time range to the spec form that
// would have produced it: "YYYY" when the range spans exactly one calendar
// year, "YYYY-MM" for exactly one calendar month, else the literal
// timestamp pair joined with "|".
func InferTimeSpec(start, end time.Time) string {
	if start.Year() == end.Year() &&
		start.Month() == time.January && start.Day() == 1 && start.Hour() == 0 &&
		end.Month() == time.December && end.Day() == 31 && end.Hour() == 23 {
		return fmt.Sprintf("%04d", start.Year())
	}

	if start.Year() == end.Year() && start.Month() == end.Month() &&
		start.Day() == 1 && start.Hour() == 0 &&
		end.Day() == lastDayOfMonth(start) && end.Hour() == 23 {
		return fmt.Sprintf("%04d-%02d", start.Year(), int(start.Month()))
	}

	return start.Format(isoLayout) + "|" + end.Format(isoLayout)
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

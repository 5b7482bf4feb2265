package signage

import (
	"fmt"
	"strings"
	"time"
)

// weekdays is indexed Monday first.
var weekdays = [7]string{"月", "火", "水", "木", "金", "土", "日"}

// Weekday returns the symbol for a Monday-based index (Monday is 0).
func Weekday(i int) string { return weekdays[((i%7)+7)%7] }

// DateLabel formats t as "MM月DD日(W)".
func DateLabel(t time.Time) string {
	return fmt.Sprintf("%02d月%02d日(%s)", int(t.Month()), t.Day(), Weekday(int(t.Weekday())+6))
}

// ResolveDateLabel turns user input into a label: "" means no date, "today"
// uses now, anything else must be YYYY-MM-DD.
func ResolveDateLabel(input string, now time.Time) (string, error) {
	switch s := strings.TrimSpace(input); strings.ToLower(s) {
	case "":
		return "", nil
	case "today":
		return DateLabel(now), nil
	default:
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return "", fmt.Errorf("invalid date %q, want YYYY-MM-DD or today", input)
		}
		return DateLabel(t), nil
	}
}

package media

import (
	"fmt"
	"time"
)

// Ordinal returns n with its English ordinal suffix (1st, 2nd, 3rd, 4th, 11th, 21st)
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// TimestampCaption builds the sentence shown on the reference clip,
// e.g. "It is 14:05:09 Tuesday March 3rd 2026".
func TimestampCaption(now time.Time, delay time.Duration) string {
	t := now.Add(delay)
	return fmt.Sprintf("It is %s %s %s %s %d",
		t.Format("15:04:05"),
		t.Weekday(),
		t.Month(),
		Ordinal(t.Day()),
		t.Year(),
	)
}

// QueryCaption returns the custom text when set, otherwise "time for <query>"
func QueryCaption(query, custom string) string {
	if custom != "" {
		return custom
	}
	return "time for " + query
}
